package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/receiptkeeper/internal/client/models"
)

// dateLayout is the format dates are entered and shown in.
const dateLayout = "2006-01-02"

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetMultiline prints a prompt to w and reads multiple lines until an empty
// line is entered (i.e., the user presses Enter twice). The trailing newline
// on each line is trimmed and the collected text is joined with '\n'.
func GetMultiline(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n(press Enter on an empty line to finish)\n"); err != nil {
		return "", err
	}

	var lines []string
	for {
		line, _ := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// GetOptionalDate reads a date in YYYY-MM-DD form. An empty line means no
// date and returns nil.
func GetOptionalDate(reader *bufio.Reader, prompt string, w io.Writer) (*time.Time, error) {
	s, err := GetSimpleText(reader, prompt+" (YYYY-MM-DD, empty to skip)", w)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	t = t.UTC()
	return &t, nil
}

// GetReminderLead reads a reminder lead time in days. Accepted values are
// 1, 3, 5 and 7; an empty line means no reminder.
func GetReminderLead(reader *bufio.Reader, w io.Writer) (models.ReminderLead, error) {
	s, err := GetSimpleText(reader, "Remind before expiry? (1, 3, 5 or 7 days, empty for none)", w)
	if err != nil {
		return models.ReminderNone, err
	}
	switch s {
	case "":
		return models.ReminderNone, nil
	case "1":
		return models.ReminderOneDay, nil
	case "3":
		return models.ReminderThreeDays, nil
	case "5":
		return models.ReminderFiveDays, nil
	case "7":
		return models.ReminderOneWeek, nil
	default:
		return models.ReminderNone, fmt.Errorf("invalid reminder lead %q", s)
	}
}

package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownWeekday = errors.New("unknown weekday")

// Weekday is a delivery day. Only Monday through Friday exist.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// legacy labels stored by the chat bot
var weekdayLabels = [...]string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница"}

func ParseWeekday(s string) (Weekday, error) {
	v := strings.TrimSpace(s)
	lower := strings.ToLower(v)
	for i, name := range weekdayNames {
		if lower == name || lower == name[:3] {
			return Weekday(i), nil
		}
	}
	for i, label := range weekdayLabels {
		if strings.EqualFold(v, label) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, s)
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

// Index is the offset from the week's Monday.
func (d Weekday) Index() int {
	return int(d)
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Label is the Russian display name used by the conversational front-end.
func (d Weekday) Label() string {
	if !d.Valid() {
		return d.String()
	}
	return weekdayLabels[d]
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWeekday, int(d))
	}
	return json.Marshal(d.String())
}

func (d *Weekday) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownWeekday, string(b))
	}
	v, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

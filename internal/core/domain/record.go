package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RetryUntilSlotChange is the retry count that keeps a checkpoint pending
// until the boot slot advances.
const RetryUntilSlotChange = -1

// Record is the parsed form of the persisted checkpoint record.
//
// The record is either a plain non-negative retry counter ("3") or the
// sentinel -1 paired with the slot suffix that was booted when the
// checkpoint started ("-1 _a").
type Record struct {
	Raw       string
	Retry     int
	Suffix    string
	HasSuffix bool
}

// ParseRecord parses the content of a checkpoint record.
// Only the leading field has to be an integer; trailing fields after the
// suffix are ignored.
func ParseRecord(content string) (Record, error) {
	rec := Record{Raw: content}

	fields := strings.Fields(content)
	if len(fields) == 0 {
		return rec, ErrInvalidRecord.WithDetails("empty record")
	}

	retry, err := strconv.Atoi(fields[0])
	if err != nil {
		return rec, ErrInvalidRecord.WithDetails(fmt.Sprintf("leading field %q", fields[0])).WithCause(err)
	}
	rec.Retry = retry

	if len(fields) > 1 {
		rec.Suffix = fields[1]
		rec.HasSuffix = true
	}
	return rec, nil
}

// FormatRecord renders the record written by StartCheckpoint for the given
// retry count. A retry of -1 with a known slot suffix produces the
// "-1 <suffix>" form; every other value stores retry+1 attempts.
func FormatRecord(retry int, suffix string) (string, error) {
	if retry < RetryUntilSlotChange {
		return "", ErrInvalidRetry.WithDetails(fmt.Sprintf("retry %d", retry))
	}
	if retry == RetryUntilSlotChange && suffix != "" {
		return fmt.Sprintf("%d %s", RetryUntilSlotChange, suffix), nil
	}
	return strconv.Itoa(retry + 1), nil
}

// Exhausted reports whether the record demands a rollback given the
// currently booted slot suffix.
func (r Record) Exhausted(currentSuffix string) bool {
	if strings.TrimSpace(r.Raw) == "0" {
		return true
	}
	if r.Retry == RetryUntilSlotChange && r.HasSuffix {
		return r.Suffix == currentSuffix
	}
	return false
}

// Decremented returns the record after one boot attempt. The counter never
// drops below zero and never grows; the suffix is dropped once counting
// starts.
func (r Record) Decremented() (Record, bool) {
	if r.Retry <= 0 {
		return r, false
	}
	next := r.Retry - 1
	return Record{Raw: strconv.Itoa(next), Retry: next}, true
}

// Package campaign handles campaign code parsing and validation.
//
// Providers publish campaigns under a structured code that encodes the
// service district (JIS X 0410 regional mesh code), the drone task, the
// target crop, and the application deadline. The code doubles as the
// stable external identifier farmers apply against.
package campaign

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Supported drone task types.
const (
	TaskSpray  = "SPRAY"  // pesticide / herbicide spraying
	TaskSeed   = "SEED"   // direct seeding
	TaskFert   = "FERT"   // fertilizer application
	TaskSurvey = "SURVEY" // growth sensing / field survey
)

var validTasks = map[string]bool{
	TaskSpray:  true,
	TaskSeed:   true,
	TaskFert:   true,
	TaskSurvey: true,
}

// codeRegex matches: AGRX-{meshCode}-{task}-{crop}-{YYYYMMDD}
// Example: AGRX-533924-SPRAY-RICE-20260715
// The mesh code is 4 to 11 digits (1st-order mesh through 1/8 mesh).
var codeRegex = regexp.MustCompile(
	`^AGRX-(\d{4,11})-([A-Z]+)-([A-Z0-9]+)-(\d{8})$`,
)

var (
	ErrInvalidCode = errors.New("campaign: invalid campaign code format")
	ErrInvalidTask = errors.New("campaign: unsupported task type")
)

// Code is a parsed campaign code.
type Code struct {
	Code     string    `json:"code"`
	MeshCode string    `json:"mesh_code"`
	Task     string    `json:"task"`
	Crop     string    `json:"crop"`
	Deadline time.Time `json:"deadline"`
}

// ParseCode parses and validates a campaign code string.
// Format: AGRX-{meshCode}-{task}-{crop}-{YYYYMMDD}
func ParseCode(code string) (*Code, error) {
	matches := codeRegex.FindStringSubmatch(code)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected AGRX-{mesh}-{task}-{crop}-{YYYYMMDD})",
			ErrInvalidCode, code)
	}

	meshCode := matches[1]
	task := matches[2]
	crop := matches[3]
	dateStr := matches[4]

	if !validTasks[task] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTask, task)
	}

	deadline, err := time.Parse("20060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidCode, dateStr)
	}

	return &Code{
		Code:     code,
		MeshCode: meshCode,
		Task:     task,
		Crop:     crop,
		Deadline: deadline,
	}, nil
}

// Expired reports whether a campaign's application deadline has passed
// at the given instant. The deadline day itself still accepts bookings;
// the first instant of the following day does not.
func Expired(deadline, now time.Time) bool {
	endOfDay := deadline.Add(24 * time.Hour)
	return !now.Before(endOfDay)
}

// Expired reports whether the campaign's application deadline has passed
// at the given instant.
func (c *Code) Expired(now time.Time) bool {
	return Expired(c.Deadline, now)
}

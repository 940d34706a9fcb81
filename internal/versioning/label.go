package versioning

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	mm "github.com/Masterminds/semver/v3"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

// Label renders a release label.
func Label(number string, build int) string {
	return fmt.Sprintf("%sb%d", number, build)
}

// ParseLabel splits a label produced by Label at its last 'b'.
func ParseLabel(label string) (string, int, error) {
	i := strings.LastIndexByte(label, 'b')
	if i <= 0 || i == len(label)-1 {
		return "", 0, invalidLabel(label)
	}
	number := label[:i]
	build, err := strconv.Atoi(label[i+1:])
	if err != nil || build < 0 {
		return "", 0, invalidLabel(label)
	}
	if err := ValidateNumber(number); err != nil {
		return "", 0, invalidLabel(label)
	}
	return number, build, nil
}

func invalidLabel(label string) error {
	return ferrors.ValidationError(fmt.Sprintf("invalid release label %q (expected <number>b<build>)", label)).
		WithContext("label", label).Build()
}

// ValidateNumber checks that a release number can appear in a file name and
// a tag. The number is otherwise opaque: "1.0", "2.1.3" and "R2" are all
// accepted.
func ValidateNumber(number string) error {
	if number == "" {
		return fmt.Errorf("release number is empty")
	}
	if i := strings.IndexFunc(number, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == '\\' || unicode.IsControl(r)
	}); i >= 0 {
		return fmt.Errorf("release number %q contains %q", number, number[i])
	}
	return nil
}

// CompareLabels orders two valid labels by release number, then build
// counter, returning -1, 0 or 1. Numbers that both parse as versions compare
// semantically ("1.10" after "1.9"); other numbers compare as strings.
func CompareLabels(a, b string) (int, error) {
	an, ab, err := ParseLabel(a)
	if err != nil {
		return 0, err
	}
	bn, bb, err := ParseLabel(b)
	if err != nil {
		return 0, err
	}
	if c := compareNumbers(an, bn); c != 0 {
		return c, nil
	}
	switch {
	case ab < bb:
		return -1, nil
	case ab > bb:
		return 1, nil
	}
	return 0, nil
}

func compareNumbers(a, b string) int {
	av, aerr := mm.NewVersion(a)
	bv, berr := mm.NewVersion(b)
	if aerr == nil && berr == nil {
		return av.Compare(bv)
	}
	return strings.Compare(a, b)
}

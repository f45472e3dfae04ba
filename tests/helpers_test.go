package tests_test

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"
)

// expectContains returns a comparator verifying stdout contains the given substring.
func expectContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("expected output to contain %q:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectNotContains returns a comparator verifying stdout does not contain the given substring.
func expectNotContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("expected output not to contain %q:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectGainBetween returns a comparator verifying that the first value printed for key (a gain in dB)
// lies in [low, high].
func expectGainBetween(key string, low, high float64) test.Comparator {
	pattern := regexp.MustCompile(regexp.QuoteMeta(key) + `\W*([+-]?\d+\.\d+) dB`)

	return func(stdout string, testing tig.T) {
		testing.Helper()

		match := pattern.FindStringSubmatch(stdout)
		if match == nil {
			testing.Log(fmt.Sprintf("expected a %s value in output:\n%s", key, stdout))
			testing.Fail()

			return
		}

		gain, err := strconv.ParseFloat(match[1], 64)
		if err != nil || gain < low || gain > high {
			testing.Log(fmt.Sprintf("expected %s in [%.2f, %.2f], got %s", key, low, high, match[1]))
			testing.Fail()
		}
	}
}

// expectGainsIncreasing returns a comparator verifying that the values printed for key, in output order,
// are strictly increasing.
func expectGainsIncreasing(key string) test.Comparator {
	pattern := regexp.MustCompile(regexp.QuoteMeta(key) + `\W*([+-]?\d+\.\d+) dB`)

	return func(stdout string, testing tig.T) {
		testing.Helper()

		matches := pattern.FindAllStringSubmatch(stdout, -1)
		if len(matches) < 2 {
			testing.Log(fmt.Sprintf("expected at least two %s values in output:\n%s", key, stdout))
			testing.Fail()

			return
		}

		previous := -1e9

		for _, match := range matches {
			gain, err := strconv.ParseFloat(match[1], 64)
			if err != nil || gain <= previous {
				testing.Log(fmt.Sprintf("expected increasing %s values in output:\n%s", key, stdout))
				testing.Fail()

				return
			}

			previous = gain
		}
	}
}

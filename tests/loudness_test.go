package tests_test

import (
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/agar/pkg/agar"

	"github.com/farcloser/replaygain/tests/testutils"
)

func TestLoudness(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "quiet audio gets more gain than normal audio",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("normal", agar.Genuine16bit44k(data, helpers))
				data.Labels().Set("quiet", agar.LowLoudnessQuiet(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command(
					"process",
					"--isolate-tracks",
					data.Labels().Get("normal"),
					data.Labels().Get("quiet"),
				)
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectGainsIncreasing("track_gain"),
				}
			},
		},
		{
			Description: "long silent intro is still measured",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", agar.SilenceLongIntro(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("process", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectGainBetween("track_gain", -24, 64),
				}
			},
		},
		{
			Description: "high sample rate audio is measured",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", agar.Genuine24bit96k(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("process", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("track_gain"),
						expectNotContains("error"),
					),
				}
			},
		},
	}

	testCase.Run(t)
}

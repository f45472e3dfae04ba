package tests_test

import (
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/agar/pkg/agar"

	"github.com/farcloser/replaygain/tests/testutils"
)

func TestProcessCLI(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "process without arguments fails",
			Command:     test.Command("process"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "process nonexistent file fails",
			Command:     test.Command("process", "/nonexistent/path/file.flac"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "process single file reports track gain and peak",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", agar.Genuine16bit44k(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("process", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("track_gain"),
						expectContains("track_peak"),
						expectGainBetween("track_gain", -24, 64),
					),
				}
			},
		},
		{
			Description: "process two files reports an album",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("first", agar.Genuine16bit44k(data, helpers))
				data.Labels().Set("second", agar.Genuine24bit96k(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("process", data.Labels().Get("first"), data.Labels().Get("second"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("album_gain"),
						expectContains("album_peak"),
						expectContains("tracks"),
					),
				}
			},
		},
		{
			Description: "process isolated tracks in parallel",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("first", agar.Genuine16bit44k(data, helpers))
				data.Labels().Set("second", agar.LowLoudnessQuiet(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command(
					"process",
					"--isolate-tracks",
					"-j",
					"2",
					data.Labels().Get("first"),
					data.Labels().Get("second"),
				)
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output:   expectContains("album_gain"),
				}
			},
		},
		{
			Description: "process with json output",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", agar.Genuine16bit44k(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("process", "--format", "json", data.Labels().Get("file"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("track_gain"),
						expectContains("track_peak"),
					),
				}
			},
		},
		{
			Description: "process missing stream fails",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("file", agar.Genuine16bit44k(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("process", "--stream", "3", data.Labels().Get("file"))
			},
			Expected: test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
	}

	testCase.Run(t)
}

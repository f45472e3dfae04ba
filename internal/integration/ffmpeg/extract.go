package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/replaygain/internal/integration/binary"
	"github.com/farcloser/replaygain/internal/types"
)

// ExtractStream decodes a specific audio stream of a container read from input and writes raw PCM in the
// given format to output.
func ExtractStream(
	ctx context.Context,
	input io.Reader,
	output io.Writer,
	streamIndex int,
	format types.PCMFormat,
) error {
	slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "format", format.Spec(), "stage", "start")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd, err := command(ctx, "-", streamIndex, format)
	if err != nil {
		return err
	}

	cmd.Stdout = output
	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		return commandError(ctx, streamIndex, &stderr, err)
	}

	slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "done")

	return nil
}

// Stream decodes a specific audio stream of the file at filePath and returns the raw PCM as it is produced.
// Closing the returned reader waits for ffmpeg to exit and reports its failure, if any.
func Stream(ctx context.Context, filePath string, streamIndex int, format types.PCMFormat) (io.ReadCloser, error) {
	slog.Debug("ffmpeg.Stream", "file path", filePath, "stream index", streamIndex, "format", format.Spec())

	ctx, cancel := context.WithTimeout(ctx, timeout)

	cmd, err := command(ctx, filePath, streamIndex, format)
	if err != nil {
		cancel()

		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()

		return nil, fmt.Errorf("%w: %w", fault.ErrCommandFailure, err)
	}

	stream := &pipe{ReadCloser: stdout, ctx: ctx, cmd: cmd, cancel: cancel, streamIndex: streamIndex}
	cmd.Stderr = &stream.stderr

	if err = cmd.Start(); err != nil {
		cancel()

		return nil, fmt.Errorf("%w: %w", fault.ErrCommandFailure, err)
	}

	return stream, nil
}

func command(ctx context.Context, input string, streamIndex int, format types.PCMFormat) (*exec.Cmd, error) {
	ffmpegPath, found := binary.Available(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	spec := format.Spec()
	if spec == "" {
		return nil, fmt.Errorf("%w: unsupported PCM format %+v", fault.ErrCommandFailure, format)
	}

	args := []string{
		"-i", input,
		"-map", "0:a:" + strconv.Itoa(streamIndex),
		"-f", spec,
		"-acodec", "pcm_" + spec,
	}

	// ffmpeg resamples when the requested rate differs from the stream rate.
	if format.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(format.SampleRate))
	}

	args = append(args, "-v", "quiet", "-")

	//nolint:gosec // input is intentionally user-provided
	return exec.CommandContext(ctx, ffmpegPath, args...), nil
}

func commandError(ctx context.Context, streamIndex int, stderr *bytes.Buffer, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		slog.Debug("ffmpeg", "stream index", streamIndex, "stage", "timeout")

		return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
	}

	slog.Debug("ffmpeg", "stream index", streamIndex, "stage", "error")

	return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
}

type pipe struct {
	io.ReadCloser

	ctx         context.Context //nolint:containedctx // bound to the lifetime of the process
	cmd         *exec.Cmd
	cancel      context.CancelFunc
	stderr      bytes.Buffer
	streamIndex int
}

func (p *pipe) Close() error {
	defer p.cancel()

	// Unblock ffmpeg if the reader stopped early.
	_ = p.ReadCloser.Close()

	if err := p.cmd.Wait(); err != nil {
		return commandError(p.ctx, p.streamIndex, &p.stderr, err)
	}

	return nil
}

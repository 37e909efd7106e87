package tokenize

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/logger"
)

const minChunkSize = 64

type SudachiOptions struct {
	Command   string
	Mode      string
	ChunkSize int
	Timeout   time.Duration
}

// SudachiTokenizer segments text with the external sudachi command and keeps
// the normalized form of every morpheme.
type SudachiTokenizer struct {
	logger  logger.Logger
	options SudachiOptions
}

// DefaultSudachiTimeout bounds one sudachi run when no timeout is configured.
const DefaultSudachiTimeout = 10 * time.Second

var _ Tokenizer = (*SudachiTokenizer)(nil)

func NewSudachi(logger logger.Logger, options SudachiOptions) *SudachiTokenizer {
	if options.Command == "" {
		options.Command = "sudachi"
	}
	switch strings.ToUpper(options.Mode) {
	case "A", "B", "C":
		options.Mode = strings.ToUpper(options.Mode)
	default:
		options.Mode = "A"
	}
	options.ChunkSize = max(options.ChunkSize, minChunkSize)
	if options.Timeout <= 0 {
		options.Timeout = DefaultSudachiTimeout
	}

	return &SudachiTokenizer{logger: logger, options: options}
}

func (s *SudachiTokenizer) Tokenize(ctx context.Context, text string) ([]string, error) {
	var terms []string
	for _, chunk := range splitIntoChunks(text, s.options.ChunkSize) {
		chunkTerms, err := s.run(ctx, chunk)
		if err != nil {
			return nil, err
		}
		terms = append(terms, chunkTerms...)
	}

	return terms, nil
}

func (s *SudachiTokenizer) run(ctx context.Context, chunk string) ([]string, error) {
	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.options.Command, "-a", "-m", s.options.Mode, "--split-sentences", "no")
	cmd.Stdin = strings.NewReader(chunk)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.logger.Error("sudachi exited with an error", "code", exitErr.ExitCode(), "stderr", strings.TrimSpace(stderr.String()))
			return nil, apperrors.Newf(apperrors.ErrTokenizationUnavailable, "sudachi exited with code %d", exitErr.ExitCode())
		}
		s.logger.Error("failed to run sudachi", "command", s.options.Command, "err", err.Error())
		return nil, apperrors.Newf(apperrors.ErrTokenizationUnavailable, "failed to run %s: %s", s.options.Command, err.Error())
	}

	return parseSudachiOutput(output), nil
}

// parseSudachiOutput reads the normalized form column of each morpheme line.
func parseSudachiOutput(output []byte) []string {
	var terms []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "EOS") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}
		if term, ok := normalize(fields[2]); ok {
			terms = append(terms, term)
		}
	}

	return terms
}

func isChunkBoundary(r rune) bool {
	switch r {
	case '。', '！', '!', '?', '？', '、', ',', '\n':
		return true
	}
	return false
}

// splitIntoChunks cuts text at punctuation once a chunk holds half of
// maxBytes, and unconditionally once it reaches maxBytes.
func splitIntoChunks(text string, maxBytes int) []string {
	var chunks []string
	var buf strings.Builder
	flush := func() {
		if chunk := strings.TrimSpace(buf.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
	}

	for _, r := range text {
		buf.WriteRune(r)
		if isChunkBoundary(r) && buf.Len() >= maxBytes/2 {
			flush()
			continue
		}
		if buf.Len() >= maxBytes {
			flush()
		}
	}
	flush()

	return chunks
}

package document

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// TesseractRecognizer shells out to tesseract, feeding the image on
// stdin and reading recognized text from stdout.
type TesseractRecognizer struct {
	binary string
	logger *zap.Logger
}

// NewTesseractRecognizer builds a recognizer. binary defaults to
// "tesseract" when empty.
func NewTesseractRecognizer(binary string, logger *zap.Logger) *TesseractRecognizer {
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractRecognizer{binary: binary, logger: logger}
}

// Recognize runs OCR over one page image. langs is tesseract's -l
// value, e.g. "kor+eng".
func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte, langs string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	args := []string{"stdin", "stdout"}
	if langs != "" {
		args = append(args, "-l", langs)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", t.binary, err, stderr.String())
	}
	return stdout.String(), nil
}

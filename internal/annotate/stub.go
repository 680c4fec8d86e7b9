package annotate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// StubAnnotator produces deterministic placeholder annotations so the
// annotate command can run offline and in tests.
type StubAnnotator struct{}

func (StubAnnotator) Describe(ctx context.Context, jpeg []byte) (Annotation, error) {
	if len(jpeg) == 0 {
		return Annotation{}, fmt.Errorf("describe: empty frame")
	}
	sum := sha256.Sum256(jpeg)
	short := hex.EncodeToString(sum[:4])
	return Annotation{
		Description: fmt.Sprintf("Unreviewed clip (frame digest %s).", short),
		Tags:        "unreviewed",
	}, nil
}

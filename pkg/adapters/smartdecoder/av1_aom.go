//go:build aom

package smartdecoder

import (
	"github.com/user/vidreader/pkg/adapters/av1decoder"
	"github.com/user/vidreader/pkg/ports"
)

func init() {
	newAV1 = func() ports.SampleDecoder { return av1decoder.New() }
}

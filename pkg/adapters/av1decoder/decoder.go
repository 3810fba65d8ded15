//go:build aom

// Package av1decoder decodes AV1 samples with libaom. It is built with the
// "aom" build tag and needs the libaom development files.
package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface, unsigned int threads) {
    aom_codec_dec_cfg_t cfg;
    memset(&cfg, 0, sizeof(cfg));
    cfg.threads = threads;
    cfg.allow_lowbitdepth = 1;
    return aom_codec_dec_init(ctx, iface, &cfg, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static unsigned int get_x_shift(aom_image_t *img) {
    return img->x_chroma_shift;
}

static unsigned int get_y_shift(aom_image_t *img) {
    return img->y_chroma_shift;
}

static int is_high_bitdepth(aom_image_t *img) {
    return (img->fmt & AOM_IMG_FMT_HIGHBITDEPTH) != 0;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/user/vidreader/pkg/ports"
)

// ErrNotInitialized is returned by DecodeGroup before Init.
var ErrNotInitialized = errors.New("av1decoder: decoder not initialized")

// Decoder implements ports.SampleDecoder for AV1 streams. Every MP4 sample is
// one temporal unit that shows at most one frame, so decode order is
// presentation order.
type Decoder struct {
	codec *C.aom_codec_ctx_t
}

// New creates a new AV1 decoder.
func New() *Decoder {
	return &Decoder{}
}

// Init initializes libaom. Sequence headers travel in band, so only the
// thread count is taken from cfg.
func (d *Decoder) Init(cfg ports.DecoderConfig) error {
	d.Close()

	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	threads := max(cfg.Threads, 0)
	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface, C.uint(threads)); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}
	return nil
}

// DecodeGroup decodes the samples of one GOP in order. A sample that fails to
// decode or shows no frame yields a nil entry.
func (d *Decoder) DecodeGroup(samples [][]byte) ([]image.Image, error) {
	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	out := make([]image.Image, len(samples))
	for i, s := range samples {
		img, err := d.decodeSample(s)
		if err != nil {
			continue
		}
		out[i] = img
	}
	return out, nil
}

func (d *Decoder) decodeSample(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty sample")
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("decode failed: %d", res)
	}

	var iter C.aom_codec_iter_t
	img := C.aom_codec_get_frame(d.codec, &iter)
	if img == nil {
		return nil, fmt.Errorf("no frame shown")
	}
	if C.is_high_bitdepth(img) != 0 {
		return nil, fmt.Errorf("high bit depth output is not supported")
	}
	return toRGBA(img), nil
}

// Close releases decoder resources. It is safe to call more than once.
func (d *Decoder) Close() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// toRGBA converts a planar 8-bit YUV image to RGBA with BT.601 limited range
// coefficients.
func toRGBA(img *C.aom_image_t) *image.RGBA {
	width := int(C.get_width(img))
	height := int(C.get_height(img))
	xs := uint(C.get_x_shift(img))
	ys := uint(C.get_y_shift(img))

	yPlane := unsafe.Pointer(C.get_plane(img, 0))
	uPlane := unsafe.Pointer(C.get_plane(img, 1))
	vPlane := unsafe.Pointer(C.get_plane(img, 2))

	yStride := int(C.get_stride(img, 0))
	uStride := int(C.get_stride(img, 1))
	vStride := int(C.get_stride(img, 2))

	yData := unsafe.Slice((*uint8)(yPlane), yStride*height)
	chromaRows := (height + (1 << ys) - 1) >> ys
	uData := unsafe.Slice((*uint8)(uPlane), uStride*chromaRows)
	vData := unsafe.Slice((*uint8)(vPlane), vStride*chromaRows)

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		cy := y >> ys
		for x := 0; x < width; x++ {
			cx := x >> xs
			c := int(yData[y*yStride+x]) - 16
			du := int(uData[cy*uStride+cx]) - 128
			dv := int(vData[cy*vStride+cx]) - 128

			idx := y*rgba.Stride + x*4
			rgba.Pix[idx] = uint8(clamp((298*c + 409*dv + 128) >> 8))
			rgba.Pix[idx+1] = uint8(clamp((298*c - 100*du - 208*dv + 128) >> 8))
			rgba.Pix[idx+2] = uint8(clamp((298*c + 516*du + 128) >> 8))
			rgba.Pix[idx+3] = 255
		}
	}
	return rgba
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Ensure Decoder implements ports.SampleDecoder
var _ ports.SampleDecoder = (*Decoder)(nil)

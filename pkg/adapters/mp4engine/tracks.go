package mp4engine

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidreader/pkg/adapters/codecdetect"
	"github.com/user/vidreader/pkg/ports"
)

// sample is one entry of a track's sample table in decode order.
type sample struct {
	dts    int64
	cto    int64
	dur    int64
	sync   bool
	offset uint64
	size   uint32
	data   []byte // set for fragmented files
}

func (s *sample) pts() int64 {
	return s.dts + s.cto
}

type track struct {
	info    ports.StreamInfo
	params  [][]byte
	samples []sample
}

// parseTracks builds the sample tables of all tracks.
func parseTracks(file *mp4.File) ([]*track, error) {
	moov := file.Moov
	if moov == nil && file.Init != nil {
		moov = file.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("no moov box found")
	}

	var tracks []*track
	for i, trak := range moov.Traks {
		t := newTrack(i, trak)
		if file.IsFragmented() {
			if err := t.addFragments(file, trak.Tkhd.TrackID, findTrex(moov, trak.Tkhd.TrackID)); err != nil {
				return nil, err
			}
		}
		if trak.Mdia != nil && trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil {
			if err := t.addSampleTable(trak.Mdia.Minf.Stbl); err != nil {
				return nil, err
			}
		}
		t.finish()
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func newTrack(index int, trak *mp4.TrakBox) *track {
	t := &track{info: ports.StreamInfo{
		Index: index,
		Video: codecdetect.IsVideo(trak),
		Codec: codecdetect.SampleEntry(trak),
	}}

	if trak.Mdia != nil && trak.Mdia.Mdhd != nil {
		t.info.TimeBase = ports.Rational{Num: 1, Den: int64(trak.Mdia.Mdhd.Timescale)}
		t.info.Duration = int64(trak.Mdia.Mdhd.Duration)
	}
	if trak.Tkhd != nil {
		t.info.Width = int(uint32(trak.Tkhd.Width) >> 16)
		t.info.Height = int(uint32(trak.Tkhd.Height) >> 16)
	}

	if trak.Mdia != nil && trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			vse, ok := child.(*mp4.VisualSampleEntryBox)
			if !ok {
				continue
			}
			if vse.Width > 0 && vse.Height > 0 {
				t.info.Width, t.info.Height = int(vse.Width), int(vse.Height)
			}
			if vse.AvcC != nil {
				t.params = append(t.params, vse.AvcC.SPSnalus...)
				t.params = append(t.params, vse.AvcC.PPSnalus...)
			}
			break
		}
	}
	return t
}

func findTrex(moov *mp4.MoovBox, trackID uint32) *mp4.TrexBox {
	if moov.Mvex == nil {
		return nil
	}
	for _, trex := range moov.Mvex.Trexs {
		if trex.TrackID == trackID {
			return trex
		}
	}
	return nil
}

// addSampleTable appends the samples described by a progressive stbl.
func (t *track) addSampleTable(stbl *mp4.StblBox) error {
	if stbl.Stsz == nil || stbl.Stsz.SampleNumber == 0 {
		return nil
	}
	if stbl.Stsc == nil || (stbl.Stco == nil && stbl.Co64 == nil) {
		return fmt.Errorf("track %d: missing chunk tables", t.info.Index)
	}

	var syncSamples map[uint32]bool
	if stbl.Stss != nil {
		syncSamples = make(map[uint32]bool, len(stbl.Stss.SampleNumber))
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	var (
		chunkNr     = -1
		chunkOffset uint64
	)
	for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
		cnr, first, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
		if err != nil {
			return fmt.Errorf("track %d sample %d: %w", t.info.Index, nr, err)
		}
		if cnr != chunkNr {
			chunkNr = cnr
			chunkOffset, err = chunkStart(stbl, cnr)
			if err != nil {
				return fmt.Errorf("track %d sample %d: %w", t.info.Index, nr, err)
			}
			for s := uint32(first); s < nr; s++ {
				chunkOffset += uint64(stbl.Stsz.GetSampleSize(int(s)))
			}
		}

		s := sample{
			offset: chunkOffset,
			size:   stbl.Stsz.GetSampleSize(int(nr)),
			sync:   syncSamples == nil || syncSamples[nr],
		}
		chunkOffset += uint64(s.size)

		if stbl.Stts != nil {
			dts, dur := stbl.Stts.GetDecodeTime(nr)
			s.dts, s.dur = int64(dts), int64(dur)
		}
		if stbl.Ctts != nil {
			s.cto = int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}
		t.samples = append(t.samples, s)
	}
	return nil
}

func chunkStart(stbl *mp4.StblBox, chunkNr int) (uint64, error) {
	if stbl.Stco != nil {
		return stbl.Stco.GetOffset(chunkNr)
	}
	if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
		return 0, fmt.Errorf("chunk %d out of range", chunkNr)
	}
	return stbl.Co64.ChunkOffset[chunkNr-1], nil
}

// addFragments appends the samples of all fragments belonging to trackID.
func (t *track) addFragments(file *mp4.File, trackID uint32, trex *mp4.TrexBox) error {
	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTrack(frag.Moof, trackID) {
				continue
			}
			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return fmt.Errorf("track %d: get samples: %w", t.info.Index, err)
			}
			for i := range full {
				fs := &full[i]
				t.samples = append(t.samples, sample{
					dts:  int64(fs.DecodeTime),
					cto:  int64(fs.CompositionTimeOffset),
					dur:  int64(fs.Dur),
					sync: fs.IsSync(),
					size: fs.Size,
					data: fs.Data,
				})
			}
		}
	}
	return nil
}

// hasTrack reports whether the fragment carries trackID. Only the first traf
// of a fragment is read.
func hasTrack(moof *mp4.MoofBox, trackID uint32) bool {
	return len(moof.Trafs) > 0 && moof.Trafs[0].Tfhd.TrackID == trackID
}

// finish derives the frame count, duration and average rate from the samples.
func (t *track) finish() {
	n := int64(len(t.samples))
	t.info.NumFrames = n
	if n == 0 {
		return
	}

	var total int64
	for _, s := range t.samples {
		total += s.dur
	}
	if t.info.Duration == 0 {
		t.info.Duration = total
	}
	if total > 0 && t.info.TimeBase.Den > 0 {
		t.info.AvgFrameRate = ports.Rational{Num: n * t.info.TimeBase.Den, Den: total}
	}
}

// cursor iterates a sample table as packets.
type cursor struct {
	samples []sample
	pos     int
}

func (c *cursor) Next() (ports.Packet, error) {
	if c.pos >= len(c.samples) {
		return ports.Packet{}, io.EOF
	}
	s := &c.samples[c.pos]
	c.pos++
	return ports.Packet{
		PTS:      s.pts(),
		DTS:      s.dts,
		Duration: s.dur,
		Keyframe: s.sync,
	}, nil
}

func (c *cursor) Close() error {
	c.samples = nil
	return nil
}

package h264decoder

var startCode = []byte{0, 0, 0, 1}

// avccToAnnexB converts length-prefixed NAL units to start-code form.
func avccToAnnexB(data []byte) []byte {
	var result []byte
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if naluLen < 0 || offset+naluLen > len(data) {
			break
		}

		result = append(result, startCode...)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}

// parameterSets joins raw SPS/PPS NAL units into an Annex B header.
func parameterSets(nalus [][]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, startCode...)
		out = append(out, n...)
	}
	return out
}

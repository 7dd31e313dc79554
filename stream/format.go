package stream

import "strconv"

// msToSeconds renders a millisecond duration as the decimal-seconds text
// ffmpeg filter parameters expect (e.g. duration=1.5), trimming trailing
// zeros so output stays stable and compact.
func msToSeconds(ms int64) string {
	seconds := float64(ms) / 1000.0
	return formatFloat(seconds)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package types

// TranscriptLine is one fixed-length chunk of the transcription.
// Times are HH:MM:SS offsets into the source video.
type TranscriptLine struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Text      string `json:"text"`
}

// Short is a validated highlight segment. ShortNumber is 1-based and follows
// the order in which segments survived validation.
type Short struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`
	ShortNumber int    `json:"short_number"`
}

type Manifest struct {
	Input      string         `json:"input"`
	SourceURL  string         `json:"source_url,omitempty"`
	Transcript string         `json:"transcript"`
	Shorts     string         `json:"shorts"`
	Clips      []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ShortNumber int     `json:"short_number"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	Description string  `json:"description"`
	File        string  `json:"file"`
	Subtitles   string  `json:"subtitles,omitempty"`
}

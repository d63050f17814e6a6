package models

// Segment is one timestamped piece of a transcript. Times are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the data printed by the video transcriber.
type Transcript struct {
	Title           string    `json:"title"`
	FullText        string    `json:"full_text"`
	Segments        []Segment `json:"segments"`
	TimestampedText string    `json:"timestamped_text"`
	WordCount       int       `json:"word_count"`
	SegmentCount    int       `json:"segment_count"`
	URL             string    `json:"url"`
	Duration        float64   `json:"duration"`
}

// PostStats holds the engagement counters of a note.
type PostStats struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Collects int `json:"collects"`
	Shares   int `json:"shares"`
}

// Post is one Xiaohongshu note as returned by the crawler.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	Tags        []string  `json:"tags,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Stats       PostStats `json:"stats"`
	URL         string    `json:"url"`
	PublishTime string    `json:"publish_time,omitempty"`
}

// NotePayload is the crawler's data for a single note request.
type NotePayload struct {
	Posts []Post `json:"posts"`
}

// ProfileUser describes the owner of a profile.
type ProfileUser struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
	Likes     int    `json:"likes"`
}

// ProfilePayload is the crawler's data for a profile request.
type ProfilePayload struct {
	User  ProfileUser `json:"user"`
	Posts []Post      `json:"posts"`
}

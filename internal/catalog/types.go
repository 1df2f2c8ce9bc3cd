package catalog

// SearchOptions controls a catalog listing. Zero values use the catalog
// defaults.
type SearchOptions struct {
	TagID   string
	TagType string
	CellID  string
	Offset  int
	Limit   int
}

// SeriesSummary is one entry of a search result.
type SeriesSummary struct {
	SeriesID     string `json:"series_id"`
	Title        string `json:"title"`
	Intro        string `json:"intro"`
	CoverURL     string `json:"cover_url"`
	EpisodeCount int    `json:"episode_count"`
}

// EpisodeDetail describes one episode of a series detail.
type EpisodeDetail struct {
	VID      string `json:"vid"`
	Title    string `json:"title"`
	CoverURL string `json:"episode_cover"`
	Index    int    `json:"vid_index"`
	Duration int    `json:"duration"`
	Width    int    `json:"video_width"`
	Height   int    `json:"video_height"`
}

// SeriesDetail is the catalog view of a series and its episodes.
type SeriesDetail struct {
	SeriesID     string          `json:"series_id"`
	Title        string          `json:"series_title"`
	Intro        string          `json:"series_intro"`
	CoverURL     string          `json:"series_cover"`
	EpisodeCount int             `json:"episode_cnt"`
	Episodes     []EpisodeDetail `json:"video_list"`
}

// Stream is a resolved playable URL for an episode.
type Stream struct {
	URL        string `json:"play_url"`
	Definition string `json:"definition"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

type searchEnvelope struct {
	Data struct {
		Cell struct {
			Books []struct {
				BookID      flexString `json:"book_id"`
				ThumbURL    string     `json:"thumb_url"`
				BookName    string     `json:"book_name"`
				Abstract    string     `json:"abstract"`
				SerialCount flexInt    `json:"serial_count"`
			} `json:"books"`
		} `json:"cell"`
	} `json:"data"`
}

type detailEnvelope struct {
	Data struct {
		VideoData *struct {
			SeriesTitle string  `json:"series_title"`
			SeriesIntro string  `json:"series_intro"`
			SeriesCover string  `json:"series_cover"`
			EpisodeCnt  flexInt `json:"episode_cnt"`
			VideoList   []struct {
				VID          flexString `json:"vid"`
				EpisodeCover string     `json:"episode_cover"`
				Title        string     `json:"title"`
				VidIndex     flexInt    `json:"vid_index"`
				Duration     flexInt    `json:"duration"`
				VideoHeight  flexInt    `json:"video_height"`
				VideoWidth   flexInt    `json:"video_width"`
			} `json:"video_list"`
		} `json:"video_data"`
	} `json:"data"`
}

type streamEnvelope struct {
	Data *struct {
		MainURL     string  `json:"main_url"`
		Definition  string  `json:"definition"`
		VideoWidth  flexInt `json:"video_width"`
		VideoHeight flexInt `json:"video_height"`
	} `json:"data"`
}

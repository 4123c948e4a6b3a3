package media

type Source struct {
	DesktopID   string  `redis:"desktop_id"`
	Title       string  `redis:"title"`
	Path        string  `redis:"path"`
	MimeType    string  `redis:"mime_type"`
	Size        int64   `redis:"size"`
	AspectRatio float64 `redis:"aspect_ratio"`
	Measured    bool    `redis:"measured"`
}

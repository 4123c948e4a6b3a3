package media

type SetSourceParams struct {
	SourceID    string
	DesktopID   string
	Title       string
	Path        string
	MimeType    string
	Size        int64
	AspectRatio float64
	Measured    bool
}

type RemoveSourceParams struct {
	SourceID  string
	DesktopID string
}

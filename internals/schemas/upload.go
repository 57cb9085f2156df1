package schemas

type UploadedFile struct {
	Filename string `json:"filename" yaml:"filename"`
	Path     string `json:"path" yaml:"path"`
	Size     int64  `json:"size" yaml:"size"`
}

type UploadResponse struct {
	Files []UploadedFile `json:"files" yaml:"files"`
}

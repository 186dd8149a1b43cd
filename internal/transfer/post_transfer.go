package transfer

// PostCreation is the body of POST /api/posts. Date and Time are in the
// caller's Timezone; PostNow ignores both.
type PostCreation struct {
	Title     string `json:"title"`
	Caption   string `json:"caption"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Timezone  string `json:"timezone"`
	Status    string `json:"status"`
	Account   string `json:"account"`
	MediaURL  string `json:"mediaUrl"`
	MediaKind string `json:"mediaKind"`
	PostNow   bool   `json:"postNow"`
}

// PostEdit is the body of PUT /api/posts/:id. Absent fields are left alone.
type PostEdit struct {
	Title     *string `json:"title"`
	Caption   *string `json:"caption"`
	Date      *string `json:"date"`
	Time      *string `json:"time"`
	Timezone  string  `json:"timezone"`
	Status    *string `json:"status"`
	Account   *string `json:"account"`
	MediaURL  *string `json:"mediaUrl"`
	MediaKind string  `json:"mediaKind"`
}

type UploadResult struct {
	Success     bool   `json:"success"`
	VideoID     string `json:"videoId"`
	FilePath    string `json:"filePath"`
	StorageType string `json:"storageType"`
}

package transfer

import "encoding/json"

type TiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// Failed reports whether the error envelope carries a real error. TikTok
// sends code "ok" on success.
func (e TiktokError) Failed() bool {
	return e.Code != "" && e.Code != "ok"
}

type VideoPostInfo struct {
	Title                 string `json:"title"`
	Description           string `json:"description,omitempty"`
	PrivacyLevel          string `json:"privacy_level"`
	DisableDuet           bool   `json:"disable_duet"`
	DisableComment        bool   `json:"disable_comment"`
	DisableStitch         bool   `json:"disable_stitch"`
	VideoCoverTimestampMs int    `json:"video_cover_timestamp_ms"`
}

type VideoSourceInfo struct {
	Source          string `json:"source"`
	VideoID         string `json:"video_id,omitempty"`
	VideoSize       int64  `json:"video_size,omitempty"`
	ChunkSize       int64  `json:"chunk_size,omitempty"`
	TotalChunkCount int    `json:"total_chunk_count,omitempty"`
}

type VideoInitRequest struct {
	PostInfo   VideoPostInfo   `json:"post_info"`
	SourceInfo VideoSourceInfo `json:"source_info"`
}

type VideoInitData struct {
	PublishID string `json:"publish_id"`
	UploadURL string `json:"upload_url"`
}

type VideoInitResponse struct {
	Data  VideoInitData `json:"data"`
	Error TiktokError   `json:"error"`
}

type VideoPublishRequest struct {
	PostInfo   VideoPostInfo   `json:"post_info"`
	SourceInfo VideoSourceInfo `json:"source_info"`
}

type TiktokPublishData struct {
	PublishID string `json:"publish_id"`
}

type VideoPublishResponse struct {
	Data  TiktokPublishData `json:"data"`
	Error TiktokError       `json:"error"`
}

type StatusFetchRequest struct {
	PublishID string `json:"publish_id"`
}

type StatusFetchData struct {
	Status        string `json:"status"`
	FailReason    string `json:"fail_reason"`
	UploadedBytes int64  `json:"uploaded_bytes"`
}

type StatusFetchResponse struct {
	Data  StatusFetchData `json:"data"`
	Error TiktokError     `json:"error"`
}

type TiktokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	OpenID           string `json:"open_id"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
}

// UnmarshalJSON accepts the token fields either at the top level or nested
// under "data"; the token endpoint has returned both shapes.
func (t *TiktokTokenResponse) UnmarshalJSON(b []byte) error {
	type plain TiktokTokenResponse
	var envelope struct {
		plain
		Data *plain `json:"data"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return err
	}
	if envelope.AccessToken == "" && envelope.Data != nil {
		*t = TiktokTokenResponse(*envelope.Data)
		return nil
	}
	*t = TiktokTokenResponse(envelope.plain)
	return nil
}

package companies

import "time"

// Profile is the public face of a company account.
type Profile struct {
	UserID    string    `json:"userId"`
	Company   string    `json:"company"`
	Picture   string    `json:"picture,omitempty"`
	Details   string    `json:"details,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpsertRequest is the body for POST /api/updateCompany.
type UpsertRequest struct {
	Company string `json:"company"`
	Picture string `json:"picture"`
	Details string `json:"details"`
}

// PictureUpload is a presigned target for a profile picture.
type PictureUpload struct {
	UploadURL  string `json:"uploadUrl"`
	PictureRef string `json:"pictureRef"`
}

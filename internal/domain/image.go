package domain

import (
	"time"
)

// Image is a stored picture owned by a product. Hash is the md5 of the file
// bytes and is unique across the whole catalog; StoragePath is the object
// store reference ("bucket/object").
type Image struct {
	ID          int64     `json:"id" db:"id"`
	ProductID   int64     `json:"product_id" db:"product_id"`
	Filename    string    `json:"image_filename" db:"image_filename"`
	Hash        string    `json:"image_hash" db:"image_hash"`
	StoragePath string    `json:"storage_path" db:"storage_path"`
	IsCover     bool      `json:"is_cover" db:"is_cover"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

package domain

import (
	"time"
)

// Product represents one catalog entry. URL is the natural key used for
// import matching; PriceValue and ReleaseDateValue are derived from the
// freeform Price and ReleaseDate texts and recomputed on every write.
type Product struct {
	ID               int64      `json:"id" db:"id"`
	ProductName      *string    `json:"product_name" db:"product_name"`
	ProductNameCN    *string    `json:"product_name_cn" db:"product_name_cn"`
	Price            *string    `json:"price" db:"price"`
	ReleaseDate      *string    `json:"release_date" db:"release_date"`
	ArticleContent   *string    `json:"article_content" db:"article_content"`
	URL              string     `json:"url" db:"url"`
	ProductTag       *string    `json:"product_tag" db:"product_tag"`
	Series           *string    `json:"series" db:"series"`
	PriceValue       *int64     `json:"price_value" db:"price_value"`
	ReleaseDateValue *time.Time `json:"release_date_value" db:"release_date_value"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/microcosm-cc/bluemonday"

	domain "github.com/velvra/api/internal/domain"
	pfirestore "github.com/velvra/api/internal/platform/firestore"
	"github.com/velvra/api/internal/repositories"
)

const (
	productCollection  = "products"
	metaCollection     = "meta"
	catalogMetaDocID   = "catalog"
	emptyCatalogMarker = "empty"
)

// ProductRepository serves the published catalog out of Firestore. Documents
// are normalized on decode so the query engine can assume trimmed, sanitized,
// non-negative fields.
type ProductRepository struct {
	base     *pfirestore.BaseRepository[productDocument]
	meta     *pfirestore.BaseRepository[catalogMetaDocument]
	sanitize *bluemonday.Policy
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base:     pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
		meta:     pfirestore.NewBaseRepository[catalogMetaDocument](provider, metaCollection, nil, nil),
		sanitize: bluemonday.StrictPolicy(),
	}, nil
}

// ListAll returns every published product. Filtering, search and ordering
// happen in-process, so the listing deliberately carries no query clauses.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}

	docs, err := r.base.Query(ctx, nil)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, r.normalize(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return products, nil
}

// FindByID loads a single product by document ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return r.normalize(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// CatalogVersion identifies the current catalog snapshot. Product writers bump
// the meta document; when it is absent the latest product write time stands in
// so caches still converge after a manual edit.
func (r *ProductRepository) CatalogVersion(ctx context.Context) (string, error) {
	if r == nil || r.meta == nil {
		return "", errors.New("product repository not initialised")
	}

	doc, err := r.meta.Get(ctx, catalogMetaDocID)
	if err == nil {
		if version := strings.TrimSpace(doc.Data.Version); version != "" {
			return version, nil
		}
		if !doc.UpdateTime.IsZero() {
			return fmt.Sprintf("%d", doc.UpdateTime.UTC().UnixNano()), nil
		}
	} else if !isNotFound(err) {
		return "", err
	}

	latest, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("updatedAt", firestore.Desc).Limit(1)
	})
	if err != nil {
		return "", err
	}
	if len(latest) == 0 {
		return emptyCatalogMarker, nil
	}
	return fmt.Sprintf("%d", latest[0].UpdateTime.UTC().UnixNano()), nil
}

func (r *ProductRepository) normalize(id string, doc productDocument, createTime, updateTime time.Time) domain.Product {
	price := doc.Price
	if price < 0 {
		price = 0
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = createTime
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = updateTime
	}

	return domain.Product{
		ID:                id,
		Name:              strings.TrimSpace(doc.Name),
		Description:       strings.TrimSpace(r.sanitize.Sanitize(doc.Description)),
		Category:          strings.TrimSpace(doc.Category),
		Subcategory:       strings.TrimSpace(doc.Subcategory),
		Price:             price,
		Color:             strings.TrimSpace(doc.Color),
		Sizes:             trimmedList(doc.Sizes),
		Tags:              trimmedList(doc.Tags),
		Images:            trimmedList(doc.Images),
		StockQuantity:     doc.StockQuantity,
		LowStockThreshold: doc.LowStockThreshold,
		InStock:           doc.InStock,
		Featured:          doc.Featured,
		Views:             doc.Views,
		CreatedAt:         createdAt.UTC(),
		UpdatedAt:         updatedAt.UTC(),
	}
}

func trimmedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

type productDocument struct {
	Name              string    `firestore:"name"`
	Description       string    `firestore:"description,omitempty"`
	Category          string    `firestore:"category"`
	Subcategory       string    `firestore:"subcategory,omitempty"`
	Price             int64     `firestore:"price"`
	Color             string    `firestore:"color,omitempty"`
	Sizes             []string  `firestore:"sizes,omitempty"`
	Tags              []string  `firestore:"tags,omitempty"`
	Images            []string  `firestore:"images,omitempty"`
	StockQuantity     int       `firestore:"stockQuantity"`
	LowStockThreshold int       `firestore:"lowStockThreshold,omitempty"`
	InStock           bool      `firestore:"inStock"`
	Featured          bool      `firestore:"featured"`
	Views             int64     `firestore:"views,omitempty"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

type catalogMetaDocument struct {
	Version   string    `firestore:"version"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

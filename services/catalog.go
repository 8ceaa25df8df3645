package services

import (
	"context"
	"errors"
	"strings"

	"Storefront/cache"
	"Storefront/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	latestCount     = 4
)

type Catalog struct {
	db    *gorm.DB
	cache *cache.Products
	log   zerolog.Logger
}

func (c *Catalog) Latest(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := c.db.WithContext(ctx).
		Preload("Category").
		Order("created_at desc, id desc").
		Limit(latestCount).
		Find(&products).
		Error
	return products, err
}

// List 先嘗試從Redis讀取，失敗或為空時從資料庫讀取並重建快取
func (c *Catalog) List(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	//限制最高查詢數量
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	if c.cache == nil {
		return c.listFromDB(ctx, limit, offset)
	}

	products, total, err := c.cache.Page(ctx, offset, limit)
	if err == nil {
		return products, total, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn().Err(err).Msg("product cache read failed")
	}

	var all []models.Product
	if err := c.db.WithContext(ctx).Order("id").Find(&all).Error; err != nil {
		return nil, 0, err
	}
	if err := c.cache.Fill(ctx, all); err != nil {
		c.log.Warn().Err(err).Msg("product cache fill failed")
	}

	total = int64(len(all))
	if offset >= len(all) {
		return []models.Product{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (c *Catalog) listFromDB(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	var total int64
	if err := c.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := c.db.WithContext(ctx).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&products).
		Error
	return products, total, err
}

func (c *Catalog) ByID(ctx context.Context, id uint) (models.Product, error) {
	var product models.Product
	err := c.db.WithContext(ctx).Preload("Category").First(&product, id).Error
	return product, notFound(err, "product %d not found", id)
}

func (c *Catalog) BySlug(ctx context.Context, categorySlug, productSlug string) (models.Product, error) {
	category, err := c.categoryBySlug(ctx, categorySlug)
	if err != nil {
		return models.Product{}, err
	}

	var product models.Product
	err = c.db.WithContext(ctx).
		Where("category_id = ? AND slug = ?", category.ID, productSlug).
		First(&product).
		Error
	if err != nil {
		return models.Product{}, notFound(err, "product %s/%s not found", categorySlug, productSlug)
	}
	product.Category = &category
	return product, nil
}

func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := c.db.WithContext(ctx).Order("id").Find(&categories).Error
	return categories, err
}

func (c *Catalog) Category(ctx context.Context, slug string) (models.Category, error) {
	category, err := c.categoryBySlug(ctx, slug)
	if err != nil {
		return models.Category{}, err
	}

	err = c.db.WithContext(ctx).
		Where("category_id = ?", category.ID).
		Order("created_at desc, id desc").
		Find(&category.Products).
		Error
	return category, err
}

func (c *Catalog) categoryBySlug(ctx context.Context, slug string) (models.Category, error) {
	var category models.Category
	err := c.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	return category, notFound(err, "category %s not found", slug)
}

//以!跳脫LIKE萬用字元
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search 不分大小寫比對名稱或描述，空字串回傳空列表
func (c *Catalog) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Product{}, nil
	}

	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	var products []models.Product
	err := c.db.WithContext(ctx).
		Preload("Category").
		Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("id").
		Find(&products).
		Error
	return products, err
}

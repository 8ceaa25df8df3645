package cache

import (
	"context"
	"encoding/json"
	"errors"

	"Storefront/models"

	"github.com/redis/go-redis/v9"
)

const productsKey = "products"

// ErrMiss is returned by Page when the sorted set is empty.
var ErrMiss = errors.New("cache miss")

// Products 以Redis sorted set快取商品列表，score為商品ID
type Products struct {
	rdb *redis.Client
	key string
}

func NewProducts(rdb *redis.Client) *Products {
	return &Products{rdb: rdb, key: productsKey}
}

func (p *Products) Page(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	total, err := p.rdb.ZCard(ctx, p.key).Result()
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, ErrMiss
	}

	members, err := p.rdb.ZRange(ctx, p.key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, err
	}

	products := make([]models.Product, 0, len(members))
	for _, member := range members {
		var product models.Product
		if err := json.Unmarshal([]byte(member), &product); err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}

	return products, total, nil
}

// Fill 清除舊快取後寫入全部商品
func (p *Products) Fill(ctx context.Context, products []models.Product) error {
	members := make([]redis.Z, 0, len(products))
	for _, product := range products {
		productJSON, err := json.Marshal(product)
		if err != nil {
			return err
		}
		members = append(members, redis.Z{
			Score:  float64(product.ID),
			Member: productJSON,
		})
	}

	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, p.key, members...)
		}
		return nil
	})
	return err
}

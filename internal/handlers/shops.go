package handlers

import (
	"context"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/catalog"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/stats"
	"gorm.io/gorm"
)

type ShopHandler struct {
	db    *gorm.DB
	stats *stats.Service
}

func NewShopHandler(db *gorm.DB, stats *stats.Service) *ShopHandler {
	return &ShopHandler{db: db, stats: stats}
}

func (h *ShopHandler) activeShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	err := h.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&shops).Error
	return shops, err
}

type ListShopsInput struct {
	Query   string   `query:"q" doc:"Matches name, city or tags"`
	Filters []string `query:"filter" doc:"Tags or amenities; a shop must carry at least one"`
}

type ListShopsOutput struct {
	Body []models.Shop
}

func (h *ShopHandler) HandleList(ctx context.Context, input *ListShopsInput) (*ListShopsOutput, error) {
	shops, err := h.activeShops(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &ListShopsOutput{Body: catalog.Filter(shops, input.Query, input.Filters)}, nil
}

type NearbyShopsInput struct {
	Lat    float64 `query:"lat" required:"true" minimum:"-90" maximum:"90"`
	Lng    float64 `query:"lng" required:"true" minimum:"-180" maximum:"180"`
	Radius float64 `query:"radius" doc:"Miles, defaults to 5" minimum:"0"`
}

type NearbyShopsOutput struct {
	Body []catalog.NearbyShop
}

func (h *ShopHandler) HandleNearby(ctx context.Context, input *NearbyShopsInput) (*NearbyShopsOutput, error) {
	shops, err := h.activeShops(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}
	nearby := catalog.Nearby(shops, input.Lat, input.Lng, input.Radius)
	if nearby == nil {
		nearby = []catalog.NearbyShop{}
	}
	return &NearbyShopsOutput{Body: nearby}, nil
}

type FavoriteInput struct {
	ShopID string `path:"shopId"`
}

type FavoritesOutput struct {
	Body struct {
		FavoriteShops []string `json:"favorite_shops"`
	}
}

func favorites(u *models.User) *FavoritesOutput {
	out := &FavoritesOutput{}
	out.Body.FavoriteShops = append([]string{}, u.FavoriteShops...)
	return out
}

func (h *ShopHandler) HandleAddFavorite(ctx context.Context, input *FavoriteInput) (*FavoritesOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := h.stats.AddFavoriteShop(ctx, userID, input.ShopID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return favorites(u), nil
}

func (h *ShopHandler) HandleRemoveFavorite(ctx context.Context, input *FavoriteInput) (*FavoritesOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := h.stats.RemoveFavoriteShop(ctx, userID, input.ShopID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return favorites(u), nil
}

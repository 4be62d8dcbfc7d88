package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/menu"
	"github.com/mmynk/tableside/internal/models"
)

const (
	// MenuServiceName is the fully-qualified name of the MenuService.
	MenuServiceName = "tableside.v1.MenuService"

	MenuServiceListMenuItemsProcedure   = "/tableside.v1.MenuService/ListMenuItems"
	MenuServiceAddMenuItemProcedure     = "/tableside.v1.MenuService/AddMenuItem"
	MenuServiceSetAvailabilityProcedure = "/tableside.v1.MenuService/SetAvailability"
	MenuServiceUpdatePriceProcedure     = "/tableside.v1.MenuService/UpdatePrice"
)

type ListMenuItemsRequest struct {
	// Category, when set, restricts the listing to one category.
	Category string `json:"category,omitempty"`
}

type ListMenuItemsResponse struct {
	Items      []MenuItem `json:"items"`
	Categories []string   `json:"categories"`
}

type AddMenuItemRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Price           string `json:"price"`
	Category        string `json:"category,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	IsPopular       bool   `json:"is_popular"`
	PreparationTime int    `json:"preparation_time"`
	IsAvailable     *bool  `json:"is_available,omitempty"`
}

type SetAvailabilityRequest struct {
	ItemID      string `json:"item_id"`
	IsAvailable bool   `json:"is_available"`
}

type UpdatePriceRequest struct {
	ItemID string `json:"item_id"`
	Price  string `json:"price"`
}

type MenuItemResponse struct {
	Item MenuItem `json:"item"`
}

// MenuService implements the Connect MenuService.
type MenuService struct {
	catalog *menu.Catalog
}

// NewMenuService creates a MenuService on the given catalog.
func NewMenuService(catalog *menu.Catalog) *MenuService {
	return &MenuService{catalog: catalog}
}

// NewMenuServiceHandler builds an HTTP handler for every MenuService
// procedure and returns the path to mount it on.
func NewMenuServiceHandler(svc *MenuService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(MenuServiceListMenuItemsProcedure, connect.NewUnaryHandler(MenuServiceListMenuItemsProcedure, svc.ListMenuItems, opts...))
	mux.Handle(MenuServiceAddMenuItemProcedure, connect.NewUnaryHandler(MenuServiceAddMenuItemProcedure, svc.AddMenuItem, opts...))
	mux.Handle(MenuServiceSetAvailabilityProcedure, connect.NewUnaryHandler(MenuServiceSetAvailabilityProcedure, svc.SetAvailability, opts...))
	mux.Handle(MenuServiceUpdatePriceProcedure, connect.NewUnaryHandler(MenuServiceUpdatePriceProcedure, svc.UpdatePrice, opts...))
	return "/" + MenuServiceName + "/", mux
}

// ListMenuItems returns the catalog in creation order along with the
// categories of the full menu.
func (s *MenuService) ListMenuItems(ctx context.Context, req *connect.Request[ListMenuItemsRequest]) (*connect.Response[ListMenuItemsResponse], error) {
	all, err := s.catalog.List(ctx)
	if err != nil {
		return nil, toConnectError("ListMenuItems", err)
	}

	items := all
	if req.Msg.Category != "" {
		if items, err = s.catalog.ListByCategory(ctx, req.Msg.Category); err != nil {
			return nil, toConnectError("ListMenuItems", err)
		}
	}

	out := make([]MenuItem, len(items))
	for i, item := range items {
		out[i] = toMenuItem(item)
	}
	return connect.NewResponse(&ListMenuItemsResponse{Items: out, Categories: menu.Categories(all)}), nil
}

// AddMenuItem adds an item to the catalog.
func (s *MenuService) AddMenuItem(ctx context.Context, req *connect.Request[AddMenuItemRequest]) (*connect.Response[MenuItemResponse], error) {
	slog.Info("AddMenuItem request received", "name", req.Msg.Name, "category", req.Msg.Category)

	price, err := parseDecimal("price", req.Msg.Price)
	if err != nil {
		return nil, toConnectError("AddMenuItem", err)
	}
	item, err := s.catalog.Add(ctx, menu.NewMenuItem{
		Name:            req.Msg.Name,
		Description:     req.Msg.Description,
		Price:           price,
		Category:        req.Msg.Category,
		ImageURL:        req.Msg.ImageURL,
		IsPopular:       req.Msg.IsPopular,
		PreparationTime: req.Msg.PreparationTime,
		IsAvailable:     req.Msg.IsAvailable,
	})
	if err != nil {
		return nil, toConnectError("AddMenuItem", err)
	}
	return menuItemResponse(item), nil
}

// SetAvailability switches an item on or off for new orders.
func (s *MenuService) SetAvailability(ctx context.Context, req *connect.Request[SetAvailabilityRequest]) (*connect.Response[MenuItemResponse], error) {
	item, err := s.catalog.SetAvailability(ctx, req.Msg.ItemID, req.Msg.IsAvailable)
	if err != nil {
		return nil, toConnectError("SetAvailability", err)
	}
	return menuItemResponse(item), nil
}

// UpdatePrice changes an item's current price.
func (s *MenuService) UpdatePrice(ctx context.Context, req *connect.Request[UpdatePriceRequest]) (*connect.Response[MenuItemResponse], error) {
	price, err := parseDecimal("price", req.Msg.Price)
	if err != nil {
		return nil, toConnectError("UpdatePrice", err)
	}
	item, err := s.catalog.UpdatePrice(ctx, req.Msg.ItemID, price)
	if err != nil {
		return nil, toConnectError("UpdatePrice", err)
	}
	return menuItemResponse(item), nil
}

func menuItemResponse(item *models.MenuItem) *connect.Response[MenuItemResponse] {
	return connect.NewResponse(&MenuItemResponse{Item: toMenuItem(item)})
}

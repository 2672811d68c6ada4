package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/veritest-ai/veritest-be/internal/api/types"
	"github.com/veritest-ai/veritest-be/internal/provider"
)

type ProviderHandler struct {
	providers map[string]provider.Adapter
}

func NewProviderHandler(providers map[string]provider.Adapter) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

// ListProviders returns the static provider/model catalog
// @Summary      List providers
// @Description  Get the supported providers and their model catalogs
// @Tags         providers
// @Produce      json
// @Success      200  {object}  map[string]interface{} "Provider catalog"
// @Router       /v1/providers [get]
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	catalog := make([]types.ProviderInfo, 0, len(h.providers))
	for _, adapter := range h.providers {
		models := adapter.Models()
		if len(models) == 0 {
			continue
		}
		catalog = append(catalog, types.ProviderInfo{
			Name:        adapter.Name(),
			DisplayName: adapter.DisplayName(),
			Models:      models,
		})
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })

	c.JSON(http.StatusOK, gin.H{
		"providers": catalog,
		"count":     len(catalog),
	})
}

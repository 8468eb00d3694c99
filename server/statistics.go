package server

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/tilecache/cache"
)

const (
	extensionParam = "ext"
	extensionJSON  = "json"
	extensionXML   = "xml"

	// statisticsRoot names the document root in both representations.
	statisticsRoot = "gwcBlobStoreStatistics"
)

// StatisticsSource is a blob store that keeps cache statistics.
type StatisticsSource interface {
	Statistics(ctx context.Context) *cache.Statistics
}

// statisticsDocument renders cache statistics under the statistics root element.
type statisticsDocument struct {
	XMLName xml.Name `xml:"gwcBlobStoreStatistics"`
	cache.Statistics
}

func (s *Server) statistics(c echo.Context) error {
	src, ok := s.store.(StatisticsSource)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("no statistics available for the current blob store: %T", s.store))
	}

	ext := c.Param(extensionParam)
	if ext != extensionJSON && ext != extensionXML {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unknown or missing format extension: %q", ext))
	}

	stats := src.Statistics(c.Request().Context())
	if stats == nil {
		stats = &cache.Statistics{}
	}

	if ext == extensionXML {
		return c.XML(http.StatusOK, statisticsDocument{Statistics: *stats})
	}
	return c.JSON(http.StatusOK, map[string]*cache.Statistics{statisticsRoot: stats})
}

package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/nellia/prospectord/pkg/stage"
)

// listStagesHandler handles GET /api/v1/stages: the C13 read-only registry
// introspection endpoint, grounded in original_source's
// prospect/mcp-server/agent_registry.py (runtime agent discovery) — here
// narrowed to listing only, since invoking a stage outside a lead's DAG run
// has no meaning.
func (s *Server) listStagesHandler(c *gin.Context) {
	specs := stage.All()
	out := make([]StageDescriptor, 0, len(specs))
	for _, sp := range specs {
		out = append(out, descriptorOf(sp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionOrder < out[j].ExecutionOrder })
	c.JSON(http.StatusOK, out)
}

// getStageHandler handles GET /api/v1/stages/:name.
func (s *Server) getStageHandler(c *gin.Context) {
	sp, ok := stage.Get(c.Param("name"))
	if !ok {
		ae := mapStageError(errStageNotFound)
		c.JSON(ae.Code, gin.H{"error": ae.Message})
		return
	}
	c.JSON(http.StatusOK, descriptorOf(sp))
}

func descriptorOf(sp *stage.Spec) StageDescriptor {
	return StageDescriptor{
		Name:           sp.Name,
		Category:       string(sp.Category),
		Dependencies:   sp.Dependencies,
		ExecutionOrder: sp.ExecutionOrder,
	}
}

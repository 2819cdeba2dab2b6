package enqueue

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bidmarket/notifier/internal/observability/tracing"
	"github.com/bidmarket/notifier/pkg/logger"
)

type EnqueueHandler struct {
	useCase EnqueueUseCase
}

func NewEnqueueHandler(useCase EnqueueUseCase) *EnqueueHandler {
	return &EnqueueHandler{useCase: useCase}
}

func (h *EnqueueHandler) Handle(c *gin.Context) {
	var input EnqueueInputDTO

	ctx, span := tracing.Tracer.Start(c.Request.Context(), "EnqueueHandler.Handle")
	defer span.End()

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	output, err := h.useCase.Execute(ctx, input)
	if err != nil {
		logger.L().Error("Error enqueuing job via use case",
			zap.String("queue", input.Queue),
			zap.String("jobName", input.Name),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, output)
}

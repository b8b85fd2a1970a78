package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"catchup-rag-be/internal/dto"
	"catchup-rag-be/internal/pkg/serverutils"
	"catchup-rag-be/internal/service"
	"catchup-rag-be/pkg/rag/pipeline"
	"catchup-rag-be/pkg/rag/result"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	SendChatStream(ctx *fiber.Ctx) error
	ResumeChat(ctx *fiber.Ctx) error
	ResumeChatStream(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.SendChat)
	h.Post("stream", c.SendChatStream)
	h.Post("resume", c.ResumeChat)
	h.Post("resume/stream", c.ResumeChatStream)
	h.Post("session", c.CreateSession)
	h.Get("sessions", c.GetAllSessions)
	h.Get("session/:id/history", c.GetChatHistory)
	h.Delete("session/:id", c.DeleteSession)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show history", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.chatService.DeleteSession(ctx.Context(), userId, &dto.DeleteSessionRequest{ChatSessionId: sessionId}); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

// SendChat is the single-shot entry point. A turn that suspends for a
// pull-request selection returns 202 with the candidate payload.
func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	turn, interrupt, err := c.chatService.SendChat(ctx.Context(), userId, &req, pipeline.NopEmitter{})
	if err != nil {
		return err
	}
	if interrupt != nil {
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Pull request selection required", dto.InterruptResponse{
			ChatSessionId: req.ChatSessionId,
			Node:          interrupt.Node,
			Candidates:    interrupt.Candidates,
		}))
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", turnToResponse(req.ChatSessionId, turn)))
}

// SendChatStream streams pipeline progress as server-sent events.
func (c *chatController) SendChatStream(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	return c.streamTurn(ctx, func(runCtx context.Context, emitter pipeline.Emitter) (*pipeline.TurnResult, *pipeline.InterruptError, error) {
		return c.chatService.SendChat(runCtx, userId, &req, emitter)
	})
}

// ResumeChat continues a suspended turn, single-shot.
func (c *chatController) ResumeChat(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.ResumeChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	turn, interrupt, err := c.chatService.ResumeChat(ctx.Context(), userId, &req, pipeline.NopEmitter{})
	if err != nil {
		return err
	}
	if interrupt != nil {
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Pull request selection required", dto.InterruptResponse{
			ChatSessionId: req.ChatSessionId,
			Node:          interrupt.Node,
			Candidates:    interrupt.Candidates,
		}))
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resume chat", turnToResponse(req.ChatSessionId, turn)))
}

// ResumeChatStream continues a suspended turn over SSE.
func (c *chatController) ResumeChatStream(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	var req dto.ResumeChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	return c.streamTurn(ctx, func(runCtx context.Context, emitter pipeline.Emitter) (*pipeline.TurnResult, *pipeline.InterruptError, error) {
		return c.chatService.ResumeChat(runCtx, userId, &req, emitter)
	})
}

type turnRunner func(ctx context.Context, emitter pipeline.Emitter) (*pipeline.TurnResult, *pipeline.InterruptError, error)

// streamTurn runs one turn inside a fasthttp stream writer, relaying
// pipeline events as SSE frames. The stream ends after the terminal result,
// an interrupt, or an error frame.
func (c *chatController) streamTurn(ctx *fiber.Ctx, run turnRunner) error {
	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The fiber context is recycled once the handler returns; only the
	// detached context survives into the stream writer.
	base := context.WithoutCancel(ctx.UserContext())

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// fasthttp surfaces a broken pipe as a Flush error. Cancelling here
		// aborts the in-flight turn instead of burning gateway calls
		// against a dead connection.
		runCtx, cancel := context.WithCancel(base)
		defer cancel()

		emitter := pipeline.EmitterFunc(func(event pipeline.Event) {
			if err := writeSSE(w, string(event.Type), event); err != nil {
				cancel()
			}
		})

		_, _, err := run(runCtx, emitter)
		if err != nil && runCtx.Err() == nil {
			writeSSE(w, "error", fiber.Map{"message": err.Error()})
		}
		// Interrupt and result frames were already emitted by the pipeline.
	}))

	return nil
}

func writeSSE(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func turnToResponse(sessionId uuid.UUID, turn *pipeline.TurnResult) dto.SendChatResponse {
	res := dto.SendChatResponse{
		ChatSessionId: sessionId,
		Answer:        turn.Answer,
		Sources:       turn.Sources,
		ProcessTime:   turn.ProcessTime,
	}
	for _, doc := range turn.RelatedTickets {
		ticket := dto.TicketDTO{HTMLURL: doc.URL()}
		if t, ok := doc.(*result.TicketSearchResult); ok {
			ticket.Key = t.Key
			ticket.Summary = t.Summary
			ticket.Status = t.Status
		}
		res.RelatedTickets = append(res.RelatedTickets, ticket)
	}
	return res
}

func userIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return userId, nil
}

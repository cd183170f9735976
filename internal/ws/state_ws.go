// Package ws streams the live ChatState aggregate to clients. Each websocket
// connection owns one session; the client receives a full snapshot after every
// change and sends small commands (send, typing, mark_read) back.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"chat-sync/internal/hub"
	"chat-sync/internal/identity"
	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/realtime"
	"chat-sync/internal/repositories"
	"chat-sync/internal/session"
	"chat-sync/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StateHandlerDeps wires the handler to its collaborators.
type StateHandlerDeps struct {
	Identity      identity.Provider
	Hub           *hub.PresenceHub
	Profiles      repositories.ProfileRepository
	Feeds         realtime.FeedSource
	Messages      repositories.MessageRepository
	GroupMessages repositories.GroupMessageRepository
	Conversations repositories.ConversationRepository
	Groups        repositories.GroupRepository
	Typing        repositories.TypingRepository
	Reporter      *session.Reporter
	Audit         *telemetry.AuditEmitter
	Log           *zap.Logger
}

// StateHandler upgrades state-stream websocket connections.
type StateHandler struct {
	deps StateHandlerDeps
	opts session.Options
}

// NewStateHandler constructs a StateHandler.
func NewStateHandler(deps StateHandlerDeps, opts session.Options) *StateHandler {
	return &StateHandler{deps: deps, opts: opts}
}

// HandleGlobal streams the legacy global feed.
func (h *StateHandler) HandleGlobal(c *gin.Context) {
	h.handle(c, models.GlobalScope())
}

// HandleConversation streams a direct conversation. Membership is checked
// before the upgrade.
func (h *StateHandler) HandleConversation(c *gin.Context) {
	h.handle(c, models.ConversationScope(c.Param("conversation_id")))
}

// HandleGroup streams a group chat. Membership is checked before the upgrade.
func (h *StateHandler) HandleGroup(c *gin.Context) {
	h.handle(c, models.GroupScope(c.Param("group_id")))
}

// clientCommand is the inbound wire format.
type clientCommand struct {
	Type      string             `json:"type"`
	Content   string             `json:"content,omitempty"`
	IsTyping  bool               `json:"is_typing,omitempty"`
	MessageID string             `json:"message_id,omitempty"`
	Options   models.SendOptions `json:"options,omitempty"`
	ScopeKind models.ScopeKind   `json:"scope_kind,omitempty"`
}

func (h *StateHandler) handle(c *gin.Context, scope models.Scope) {
	ctx, span := otel.Tracer("chat-sync/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, err := bearerToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	profile, err := h.deps.Identity.CurrentUser(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if !h.authorizeScope(ctx, scope, profile.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for scope"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      profile.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive(string(scope.Kind))
	observability.IncWSEvent(string(scope.Kind), "ws_connect")
	h.emitConnEvent(ctx, "ws_connect", scope, info, "")

	go h.serve(conn, scope, profile, info)
}

func (h *StateHandler) authorizeScope(ctx context.Context, scope models.Scope, userID string) bool {
	switch scope.Kind {
	case models.ScopeConversation:
		member, err := h.deps.Conversations.IsParticipant(ctx, scope.ID, userID)
		return err == nil && member
	case models.ScopeGroup:
		member, err := h.deps.Groups.IsMember(ctx, scope.ID, userID)
		return err == nil && member
	default:
		return true
	}
}

// serve owns the connection: one session, one writer, one reader.
func (h *StateHandler) serve(conn *websocket.Conn, scope models.Scope, profile models.UserProfile, info ConnInfo) {
	tracker := session.NewTracker(h.deps.Hub, h.deps.Profiles, h.deps.Log)
	sess := session.NewSession(session.Deps{
		Feeds:         h.deps.Feeds,
		Tracker:       tracker,
		Identity:      identity.Static{Profile: profile},
		Messages:      h.deps.Messages,
		GroupMessages: h.deps.GroupMessages,
		Conversations: h.deps.Conversations,
		Groups:        h.deps.Groups,
		Typing:        h.deps.Typing,
		Reporter:      h.deps.Reporter,
		Audit:         h.deps.Audit,
		Log:           h.deps.Log,
	}, h.opts)

	done := make(chan struct{})
	var writeMu sync.Mutex
	writeState := func() error {
		state := sess.Snapshot()
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(state)
	}

	if err := sess.Open(context.Background(), scope); err != nil {
		h.deps.Log.Warn("session open failed",
			zap.String("scope", scope.Key()),
			zap.String("user_id", profile.UserID),
			zap.Error(err))
	}
	_ = writeState()

	// Writer: one fresh snapshot per coalesced update signal.
	go func() {
		for {
			select {
			case <-done:
				return
			case <-sess.Updates():
				if err := writeState(); err != nil {
					return
				}
			}
		}
	}()

	var closeReason string
	defer func() {
		close(done)
		sess.Close()
		tracker.Close()
		h.markOffline(profile.UserID)

		observability.DecWSActive(string(scope.Kind))
		observability.IncWSEvent(string(scope.Kind), "ws_disconnect")
		h.emitConnEvent(context.Background(), "ws_disconnect", scope, info, closeReason)
		conn.Close()
	}()

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(string(scope.Kind), "ws_error")
			}
			return
		}
		h.dispatch(sess, scope, profile, cmd)
	}
}

func (h *StateHandler) dispatch(sess *session.Session, scope models.Scope, profile models.UserProfile, cmd clientCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cmd.Type {
	case "send":
		if _, err := sess.Send(ctx, cmd.Content, cmd.Options); err != nil {
			h.deps.Log.Debug("ws send rejected", zap.String("user_id", profile.UserID), zap.Error(err))
		}
	case "typing":
		sess.SetTyping(cmd.IsTyping)
	case "mark_read":
		if cmd.MessageID == "" {
			return
		}
		kind := cmd.ScopeKind
		if kind == "" {
			kind = scope.Kind
		}
		h.deps.Reporter.MarkRead(cmd.MessageID, kind, profile.UserID)
	case "refresh":
		_ = sess.Refresh(ctx)
	default:
		h.deps.Log.Debug("unknown ws command", zap.String("type", cmd.Type))
	}
}

// markOffline is best-effort; presence syncs correct any miss.
func (h *StateHandler) markOffline(userID string) {
	if h.deps.Profiles == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.deps.Profiles.SetOnlineStatus(ctx, userID, models.StatusOffline); err != nil {
		h.deps.Log.Warn("offline status write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *StateHandler) emitConnEvent(ctx context.Context, event string, scope models.Scope, info ConnInfo, reason string) {
	if h.deps.Audit == nil {
		return
	}
	text := fmt.Sprintf("%s scope=%s conn=%s", event, scope.Key(), info.ConnID)
	if reason != "" {
		text += " reason=" + reason
	}
	userID := info.UserID
	h.deps.Audit.Emit(ctx, "INFO", text, info.RequestID, &userID)
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("missing token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}

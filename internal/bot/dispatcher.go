// Package bot maps inbound chat events onto the account, session, and
// composition services. The Dispatcher is transport-agnostic; telegram.go
// adapts it to the Telegram Bot API.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"

	"github.com/minaqr/botserver/internal/accounts"
	"github.com/minaqr/botserver/internal/events"
	"github.com/minaqr/botserver/internal/qr"
	"github.com/minaqr/botserver/internal/session"
	"github.com/minaqr/botserver/internal/storage"
)

// Reply is the outcome of one dispatched event. Text and Caption are
// HTML-formatted; PNG is set only for successful generation requests.
type Reply struct {
	Text    string
	PNG     []byte
	Caption string
}

// Dispatcher routes commands and enforces the single authorization rule:
// no protected operation executes unless the caller's session is
// authenticated.
type Dispatcher struct {
	accounts *accounts.Service
	sessions *session.Store
	emblems  *storage.Storage  // nil when no storage backend is configured
	audit    *events.Publisher // nil-safe
}

func NewDispatcher(accountService *accounts.Service, sessions *session.Store, emblems *storage.Storage, audit *events.Publisher) *Dispatcher {
	return &Dispatcher{
		accounts: accountService,
		sessions: sessions,
		emblems:  emblems,
		audit:    audit,
	}
}

var accessDenied = Reply{Text: "⛔ <b>Access Denied</b>\n" +
	"You must log in to use QR features.\n" +
	"Use: <code>/login email password</code>"}

// Start greets the user and lists the command surface.
func (d *Dispatcher) Start(firstName string) Reply {
	name := html.EscapeString(firstName)
	return Reply{Text: fmt.Sprintf("👋 Hi <b>%s</b>! Welcome to the <b>Secure QR Bot</b>.\n\n"+
		"<b>🔐 Auth Commands:</b>\n"+
		"• <code>/register email pass</code>\n"+
		"• <code>/login email pass</code>\n"+
		"• <code>/logout</code>\n\n"+
		"<b>🎨 QR Commands (Login Required):</b>\n"+
		"• Send Text/Link → Get QR\n"+
		"• Send Photo → Set Emblem\n"+
		"• <code>/hd</code> → Toggle HD Mode\n"+
		"• <code>/color red white</code>\n"+
		"• <code>/reset</code>", name)}
}

// Register creates an account. It never touches session state.
func (d *Dispatcher) Register(ctx context.Context, userID int64, args []string) Reply {
	if len(args) != 2 {
		return Reply{Text: "⚠️ Usage: <code>/register email password</code>"}
	}
	email, password := args[0], args[1]

	err := d.accounts.Register(ctx, email, password)
	switch {
	case errors.Is(err, accounts.ErrAlreadyExists):
		return Reply{Text: "❌ Email already exists."}
	case err != nil:
		log.Printf("register failed for user %d: %v", userID, err)
		return Reply{Text: "❌ Error saving to database."}
	}

	d.audit.Emit(ctx, events.AuditEvent{Kind: events.KindAccountRegistered, UserID: userID, Email: email})
	return Reply{Text: "✅ Registered! Now please <code>/login</code>."}
}

// Login verifies credentials and authenticates the session.
func (d *Dispatcher) Login(ctx context.Context, userID int64, args []string) Reply {
	if len(args) != 2 {
		return Reply{Text: "⚠️ Usage: <code>/login email password</code>"}
	}
	email, password := args[0], args[1]

	account, err := d.accounts.Authenticate(ctx, email, password)
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return Reply{Text: "❌ Email not found."}
	case errors.Is(err, accounts.ErrBadSecret):
		return Reply{Text: "❌ Wrong password."}
	case err != nil:
		log.Printf("login failed for user %d: %v", userID, err)
		return Reply{Text: "❌ System error during login."}
	}

	d.sessions.Login(userID, account.Email)
	d.audit.Emit(ctx, events.AuditEvent{Kind: events.KindAccountLogin, UserID: userID, Email: account.Email})
	return Reply{Text: "🔓 <b>Login Successful!</b>\nYou can now generate QR codes."}
}

// Logout clears the session entirely. The stored emblem goes with it:
// nothing would reference the object once the session is gone.
func (d *Dispatcher) Logout(ctx context.Context, userID int64) Reply {
	sess := d.sessions.Get(userID)
	d.sessions.Logout(userID)
	d.dropEmblem(ctx, userID, sess.EmblemKey)
	return Reply{Text: "🔒 Logged out."}
}

// Profile shows the email bound to the session.
func (d *Dispatcher) Profile(userID int64) Reply {
	sess, ok := d.authed(userID)
	if !ok {
		return accessDenied
	}
	return Reply{Text: fmt.Sprintf("👤 <b>Profile</b>\nLogged in as: <code>%s</code>", html.EscapeString(sess.Email))}
}

// ToggleQuality flips between normal and HD module size.
func (d *Dispatcher) ToggleQuality(userID int64) Reply {
	if _, ok := d.authed(userID); !ok {
		return accessDenied
	}
	state := "OFF"
	if d.sessions.ToggleQuality(userID) == qr.QualityHigh {
		state = "ON"
	}
	return Reply{Text: fmt.Sprintf("📸 HD Mode: <b>%s</b>", state)}
}

// SetColors sets module and background colors. Unknown color names are
// rejected up front rather than surprising the user at generation time.
func (d *Dispatcher) SetColors(userID int64, args []string) Reply {
	if _, ok := d.authed(userID); !ok {
		return accessDenied
	}
	if len(args) != 2 {
		return Reply{Text: "Usage: <code>/color red white</code>"}
	}
	fill, background := args[0], args[1]
	for _, name := range args {
		if _, ok := qr.ParseColor(name); !ok {
			return Reply{Text: fmt.Sprintf("❌ Unknown color: <code>%s</code>", html.EscapeString(name))}
		}
	}

	d.sessions.SetColors(userID, fill, background)
	return Reply{Text: fmt.Sprintf("🎨 Colors set: %s on %s", html.EscapeString(fill), html.EscapeString(background))}
}

// ResetSettings restores default visuals, keeping the login. The emblem
// binding is discarded, so the stored object is deleted rather than left
// orphaned in the bucket.
func (d *Dispatcher) ResetSettings(ctx context.Context, userID int64) Reply {
	sess, ok := d.authed(userID)
	if !ok {
		return accessDenied
	}
	d.sessions.ResetVisuals(userID)
	d.dropEmblem(ctx, userID, sess.EmblemKey)
	return Reply{Text: "🔄 QR settings reset."}
}

// SetEmblem stores the uploaded image and binds it to the session.
func (d *Dispatcher) SetEmblem(ctx context.Context, userID int64, emblem []byte) Reply {
	if _, ok := d.authed(userID); !ok {
		return accessDenied
	}
	if d.emblems == nil {
		return Reply{Text: "❌ Emblem uploads are not enabled on this server."}
	}

	// Telegram delivers photos as JPEG; sniff rather than assume.
	contentType := http.DetectContentType(emblem)

	key := storage.EmblemKey(userID)
	if err := d.emblems.Put(ctx, key, bytes.NewReader(emblem), int64(len(emblem)), contentType); err != nil {
		log.Printf("emblem upload failed for user %d: %v", userID, err)
		return Reply{Text: "❌ Could not store the emblem. Try again."}
	}

	d.sessions.SetEmblem(userID, key)
	return Reply{Text: "🖼️ Emblem uploaded! It will appear on your QRs."}
}

// Generate composes a QR code from text using the session's settings.
func (d *Dispatcher) Generate(ctx context.Context, userID int64, text string) Reply {
	sess, ok := d.authed(userID)
	if !ok {
		return accessDenied
	}

	result, err := qr.Compose(text, qr.Options{
		Quality:         sess.Quality,
		FillColor:       sess.FillColor,
		BackgroundColor: sess.BackgroundColor,
		Emblem:          d.loadEmblem(ctx, userID, sess.EmblemKey),
	})
	if err != nil {
		log.Printf("compose failed for user %d: %v", userID, err)
		return Reply{Text: "❌ Could not generate a QR code for that text."}
	}

	d.audit.Emit(ctx, events.AuditEvent{Kind: events.KindQRGenerated, UserID: userID, Email: sess.Email, Label: result.Label})
	return Reply{
		PNG:     result.PNG,
		Caption: fmt.Sprintf("✅ <b>%s</b>\nQuality: %s", result.Label, result.Quality.Caption()),
	}
}

// Authenticated reports whether the user currently passes the auth gate.
// The transport uses it to suppress interim chatter for anonymous users;
// every protected operation still enforces the gate itself.
func (d *Dispatcher) Authenticated(userID int64) bool {
	_, ok := d.authed(userID)
	return ok
}

func (d *Dispatcher) authed(userID int64) (session.Session, bool) {
	sess := d.sessions.Get(userID)
	return sess, sess.Authenticated
}

// dropEmblem removes the stored emblem object, if any. Failures are
// logged; the session state has already moved on.
func (d *Dispatcher) dropEmblem(ctx context.Context, userID int64, key string) {
	if key == "" || d.emblems == nil {
		return
	}
	if err := d.emblems.Delete(ctx, key); err != nil {
		log.Printf("emblem delete failed for user %d: %v", userID, err)
	}
}

// loadEmblem fetches the user's emblem bytes. Any failure degrades to no
// emblem; generation must not fail because the emblem is unreadable.
func (d *Dispatcher) loadEmblem(ctx context.Context, userID int64, key string) []byte {
	if key == "" || d.emblems == nil {
		return nil
	}
	rc, err := d.emblems.Get(ctx, key)
	if err != nil {
		log.Printf("emblem fetch failed for user %d: %v", userID, err)
		return nil
	}
	defer rc.Close()

	emblem, err := io.ReadAll(rc)
	if err != nil {
		log.Printf("emblem read failed for user %d: %v", userID, err)
		return nil
	}
	return emblem
}

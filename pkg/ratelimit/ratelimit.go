// Package ratelimit builds the admission guards that sit in front of the
// expensive endpoints. Two tiers: a global per-IP ceiling that caps total
// damage from one address, and a per-identity (user+IP) ceiling underneath
// it. The global guard always runs first and is configured at least as tight.
package ratelimit

import (
	"fmt"
	"net"

	"fable/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Guards struct {
	limits  config.Limits
	storage fiber.Storage

	// The global story guard is one shared handler: generate and save draw
	// from the same per-IP budget.
	globalStory   fiber.Handler
	globalTTS     fiber.Handler
	storyGenerate fiber.Handler
	storySave     fiber.Handler
	ttsPreview    fiber.Handler
	login         fiber.Handler
	signup        fiber.Handler
}

// New builds all guards up front. storage may be nil, in which case counters
// live in process memory; pass a shared store when running more than one
// instance.
func New(limits config.Limits, storage fiber.Storage) *Guards {
	g := &Guards{limits: limits, storage: storage}

	g.globalStory = g.guard("story:global", limits.GlobalStory, ipKey, genericMessage)
	g.globalTTS = g.guard("tts:global", limits.GlobalTTS, ipKey, genericMessage)
	g.storyGenerate = g.guard("story:generate", limits.StoryGenerate, userAndIPKey, genericMessage)
	g.storySave = g.guard("story:save", limits.StorySave, userAndIPKey, genericMessage)
	g.ttsPreview = g.guard("tts:preview", limits.TTSPreview, userAndIPKey, genericMessage)
	g.login = g.guard("login", limits.Login, ipKey,
		"too many login attempts, please try again later")
	g.signup = g.guard("signup", limits.Signup, ipKey,
		"too many signup attempts, please try again later")

	return g
}

const genericMessage = "too many requests, please try again later"

func (g *Guards) guard(scope string, max int, key func(*fiber.Ctx) string, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: g.limits.Window,
		Storage:    g.storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return scope + ":" + key(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": message})
		},
	})
}

func (g *Guards) GlobalStory() fiber.Handler   { return g.globalStory }
func (g *Guards) GlobalTTS() fiber.Handler     { return g.globalTTS }
func (g *Guards) StoryGenerate() fiber.Handler { return g.storyGenerate }
func (g *Guards) StorySave() fiber.Handler     { return g.storySave }
func (g *Guards) TTSPreview() fiber.Handler    { return g.ttsPreview }
func (g *Guards) Login() fiber.Handler         { return g.login }
func (g *Guards) Signup() fiber.Handler        { return g.signup }

func ipKey(c *fiber.Ctx) string {
	return ClientIP(c)
}

// userAndIPKey combines the authenticated user with the client address, so a
// fresh account behind the same IP still counts against that address's other
// accounts on the global tier while keeping per-user budgets separate here.
// On routes without a verified token it degrades to the bare IP.
func userAndIPKey(c *fiber.Ctx) string {
	ip := ClientIP(c)
	if userID, ok := c.Locals("user_id").(int); ok && userID > 0 {
		return fmt.Sprintf("%d:%s", userID, ip)
	}
	return ip
}

// ClientIP normalizes the remote address so IPv4-mapped IPv6 forms
// (::ffff:1.2.3.4) collapse onto the plain IPv4 key.
func ClientIP(c *fiber.Ctx) string {
	return normalizeIP(c.IP())
}

func normalizeIP(raw string) string {
	ip := net.ParseIP(raw)
	if ip == nil {
		return raw
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

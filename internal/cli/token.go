package cli

import (
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

type TokenCmd struct {
	For    string        `name:"for" required:"" help:"User id the token speaks for."`
	Secret string        `required:"" env:"JWT_SECRET" help:"Signing secret shared with the API server."`
	Issuer string        `default:"kanso-grid" env:"JWT_ISSUER" help:"Issuer the server expects."`
	TTL    time.Duration `default:"24h" env:"TOKEN_TTL" help:"Token lifetime."`
}

func (c *TokenCmd) Run(ctx *Context) error {
	token, err := services.NewTokenService(c.Secret, c.Issuer, c.TTL).GenerateToken(c.For)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, token)
	return nil
}

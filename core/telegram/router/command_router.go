package router

import (
	tg "github.com/m3rciful/shopbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command and its aliases to its handler.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := "command." + normalizeHandlerName(cmd)
		handler := def.Handler
		h := func(c tele.Context) error {
			return handleWithSummary(c, name, func() error { return handler(c) })
		}
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}
	return routes
}

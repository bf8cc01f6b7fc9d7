package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core"
)

type eventsApi struct {
	broadcaster core.Broadcaster
}

func registerEventsAPI(g *echo.Group, jwt echo.MiddlewareFunc, broadcaster core.Broadcaster) {
	api := eventsApi{broadcaster: broadcaster}
	g.GET("/events", api.stream, jwt)
}

// stream pushes realtime events to the client as Server-Sent Events. The
// subscription lives for as long as the request does; a dropped connection
// unregisters it.
func (api *eventsApi) stream(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	events, cancel := api.broadcaster.Subscribe(claims.Subject)
	defer cancel()

	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				ctx.Logger().Errorf("%+v", errors.Wrap(err, "marshaling event payload"))
				continue
			}
			if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", evt.Name, payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

package middleware

import (
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
)

// XRayMiddleware opens a segment per console request so outbound backend
// calls made through the xray client become subsegments.
func XRayMiddleware(segmentName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, seg := xray.BeginSegment(c.Request().Context(), segmentName)
			req := c.Request().Clone(ctx)
			c.SetRequest(req)

			seg.Lock()
			seg.GetHTTP().GetRequest().Method = req.Method
			seg.GetHTTP().GetRequest().URL = req.URL.Path
			seg.Unlock()

			err := next(c)
			if route := c.Path(); route != "" {
				_ = seg.AddAnnotation("route", route)
			}
			seg.Lock()
			seg.GetHTTP().GetResponse().Status = c.Response().Status
			seg.Unlock()
			seg.Close(err)
			return err
		}
	}
}

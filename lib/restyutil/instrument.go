package restyutil

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
	"waimai-crawler/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
}

type instrumentCtx struct {
	tracer    trace.Tracer
	tel       telemetry.API
	output    InstrumentOutput
	idcounter *uint64
}

// InstrumentClient traces every request of `client` and reports it to
// `tel`. `output` may be nil, when set every exchange is dumped to it.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, tel telemetry.API, output InstrumentOutput) {
	var idcounter uint64
	i := instrumentCtx{tracer: tracer, tel: tel, output: output, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{id: id, startTime: time.Now()})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", res.Request.Method),
		attribute.String("http.url", res.Request.URL),
		attribute.Int("http.status_code", res.StatusCode()),
	)

	rc, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		return nil
	}
	i.tel.ReportDebug(report_resty_response, rc.id, time.Since(rc.startTime).String(), res.Status())
	if i.output != nil {
		i.output.Write(strconv.FormatUint(rc.id, 10), formatHttpMessage(res))
	}
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	i.tel.ReportWarning(report_resty_response, err, req.Method, req.URL)
}

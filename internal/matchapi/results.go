package matchapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

//go:embed schema/result_set.json
var resultSetSchema string

var resultSetSchemaLoader = gojsonschema.NewStringLoader(resultSetSchema)

// GetJobResults fetches the result set of a completed job. A 404 means the
// job has not completed yet and is reported as ErrNotReady.
func (c *Client) GetJobResults(ctx context.Context, jobID string) (*analysis.ResultSet, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errJobIDRequired
	}

	data, err := c.do(ctx, http.MethodGet, c.url(jobsPath, "/", url.PathEscape(jobID), "/", resultsPath), nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotReady)
		}
		return nil, fmt.Errorf("get job %s results: %w", jobID, err)
	}

	set, unused, err := decodeResultSet(data)
	if err != nil {
		return nil, fmt.Errorf("get job %s results: %w", jobID, err)
	}

	if len(unused) > 0 {
		c.logger.Debug("ignoring unknown result fields",
			zap.String("job_id", jobID),
			zap.Strings("fields", unused),
		)
	}

	return set, nil
}

// decodeResultSet validates the payload against the embedded schema and
// decodes it. It also returns the payload keys the model does not know.
func decodeResultSet(data []byte) (*analysis.ResultSet, []string, error) {
	result, err := gojsonschema.Validate(resultSetSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("validate result payload: %w", err)
	}

	if !result.Valid() {
		respErr := &ResponseError{Errors: make([]FieldError, 0, len(result.Errors()))}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			respErr.Errors = append(respErr.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return nil, nil, respErr
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode result payload: %w", err)
	}

	var (
		set analysis.ResultSet
		md  mapstructure.Metadata
	)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   &set,
		TagName:  "json",
	})
	if err != nil {
		return nil, nil, err
	}

	if err := decoder.Decode(doc); err != nil {
		return nil, nil, fmt.Errorf("decode result payload: %w", err)
	}

	return &set, md.Unused, nil
}

package tsdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/tsreplicate/internal/errors"
	"github.com/teranos/tsreplicate/internal/httpclient"
)

const writeBatchSize = 1000

var _ Adapter = (*Client)(nil)

// Client is the HTTP-backed Adapter talking InfluxDB 1.8's query/write
// wire dialect, grounded on the original tool's InfluxDBClient.
type Client struct {
	baseURL    string
	username   string
	password   string
	http       *httpclient.SaferClient
	maxRetries int
	retryDelay time.Duration
}

// ClientOptions configures a new Client.
type ClientOptions struct {
	Username        string
	Password        string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	InsecureSkipTLS bool // honors a job descriptor's verify_ssl: false
	BlockPrivateIP  bool
}

// NewClient builds a Client against baseURL (e.g. "http://localhost:8086").
func NewClient(baseURL string, opts ClientOptions) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   opts.Username,
		password:   opts.Password,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		http: httpclient.New(opts.Timeout, httpclient.Options{
			InsecureSkipTLS: opts.InsecureSkipTLS,
			BlockPrivateIP:  opts.BlockPrivateIP,
		}),
	}
}

// queryResponse mirrors InfluxDB's /query JSON envelope.
type queryResponse struct {
	Results []struct {
		Series []struct {
			Name    string          `json:"name"`
			Tags    map[string]string `json:"tags"`
			Columns []string          `json:"columns"`
			Values  [][]interface{}   `json:"values"`
		} `json:"series"`
		Error string `json:"error"`
	} `json:"results"`
	Error string `json:"error"`
}

func (c *Client) executeQuery(ctx context.Context, query, database, epoch string) (*queryResponse, error) {
	var resp *queryResponse

	err := withRetry(ctx, c.maxRetries, c.retryDelay, "query", func() error {
		params := url.Values{"q": {query}}
		if database != "" {
			params.Set("db", database)
		}
		if epoch != "" {
			params.Set("epoch", epoch)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
		if err != nil {
			return nonRetryable(errors.Wrap(err, "failed to build query request"))
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrap(err, "connection failed")
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return errors.Wrap(err, "failed to read response body")
		}
		if httpResp.StatusCode != http.StatusOK {
			err := errors.Newf("query failed with status %d: %s", httpResp.StatusCode, string(body))
			if httpResp.StatusCode < 500 {
				return nonRetryable(err)
			}
			return err
		}

		// UseNumber preserves full int64 precision for nanosecond epoch
		// timestamps, which exceed float64's 53-bit mantissa.
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var parsed queryResponse
		if err := dec.Decode(&parsed); err != nil {
			return nonRetryable(errors.Wrap(err, "invalid JSON response"))
		}
		if parsed.Error != "" {
			return nonRetryable(errors.Newf("query error: %s", parsed.Error))
		}
		for _, r := range parsed.Results {
			if r.Error != "" {
				return nonRetryable(errors.Newf("query error: %s", r.Error))
			}
		}
		resp = &parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) executeWrite(ctx context.Context, database, lineProtocol string) error {
	return withRetry(ctx, c.maxRetries, c.retryDelay, "write", func() error {
		params := url.Values{"db": {database}, "precision": {"ns"}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/write?"+params.Encode(), bytes.NewBufferString(lineProtocol))
		if err != nil {
			return nonRetryable(errors.Wrap(err, "failed to build write request"))
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrap(err, "connection failed")
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusNoContent {
			body, _ := io.ReadAll(httpResp.Body)
			err := errors.Newf("write failed with status %d: %s", httpResp.StatusCode, string(body))
			if httpResp.StatusCode < 500 {
				return nonRetryable(err)
			}
			return err
		}
		return nil
	})
}

// TestConnection probes the server with SHOW DATABASES.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.executeQuery(ctx, "SHOW DATABASES", "", "")
	return err
}

// ListDatabases returns every database except InfluxDB's internal ones
// (prefixed with "_").
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	resp, err := c.executeQuery(ctx, "SHOW DATABASES", "", "")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list databases")
	}

	var dbs []string
	for _, row := range firstSeriesValues(resp) {
		if name, ok := row[0].(string); ok && !strings.HasPrefix(name, "_") {
			dbs = append(dbs, name)
		}
	}
	return dbs, nil
}

// CreateDatabase creates database if it does not already exist; InfluxDB's
// CREATE DATABASE is itself idempotent.
func (c *Client) CreateDatabase(ctx context.Context, database string) error {
	query := fmt.Sprintf("CREATE DATABASE %s", escapeIdentifier(database))
	_, err := c.executeQuery(ctx, query, "", "")
	if err != nil {
		return errors.Wrapf(err, "failed to create database %s", database)
	}
	return nil
}

// ListMeasurements lists every measurement in database.
func (c *Client) ListMeasurements(ctx context.Context, database string) ([]string, error) {
	resp, err := c.executeQuery(ctx, "SHOW MEASUREMENTS", database, "")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list measurements in %s", database)
	}

	var measurements []string
	for _, row := range firstSeriesValues(resp) {
		if name, ok := row[0].(string); ok {
			measurements = append(measurements, name)
		}
	}
	return measurements, nil
}

// FieldKeys returns measurement's fields mapped to their InfluxDB kind,
// collapsing float/integer into their distinct numeric kinds and anything
// unrecognized into string, matching get_field_keys.
func (c *Client) FieldKeys(ctx context.Context, database, measurement string) (map[string]FieldKind, error) {
	query := fmt.Sprintf("SHOW FIELD KEYS FROM %s", escapeIdentifier(measurement))
	resp, err := c.executeQuery(ctx, query, database, "")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get field keys from %s.%s", database, measurement)
	}

	fields := make(map[string]FieldKind)
	for _, row := range firstSeriesValues(resp) {
		name, _ := row[0].(string)
		kind, _ := row[1].(string)
		switch kind {
		case "float":
			fields[name] = FieldFloat
		case "integer":
			fields[name] = FieldInteger
		case "boolean":
			fields[name] = FieldBoolean
		default:
			fields[name] = FieldString
		}
	}
	return fields, nil
}

// TagKeys returns measurement's tag key names.
func (c *Client) TagKeys(ctx context.Context, database, measurement string) ([]string, error) {
	query := fmt.Sprintf("SHOW TAG KEYS FROM %s", escapeIdentifier(measurement))
	resp, err := c.executeQuery(ctx, query, database, "")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get tag keys from %s.%s", database, measurement)
	}

	var tags []string
	for _, row := range firstSeriesValues(resp) {
		if name, ok := row[0].(string); ok {
			tags = append(tags, name)
		}
	}
	return tags, nil
}

// LastTimestamp returns measurement's most recent point time.
func (c *Client) LastTimestamp(ctx context.Context, database, measurement string) (time.Time, bool, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY time DESC LIMIT 1", escapeIdentifier(measurement))
	resp, err := c.executeQuery(ctx, query, database, "ns")
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "failed to get last timestamp from %s.%s", database, measurement)
	}
	return firstTimestamp(resp)
}

// LastFieldTimestamp probes field's most recent non-null observation using
// three strategies of decreasing confidence, grounded on
// get_field_last_timestamp: a direct unfiltered query (works unless the
// field's most recent point is null), a WHERE IS NOT NULL fallback, and a
// COUNT diagnostic that only confirms whether any data exists at all.
func (c *Client) LastFieldTimestamp(ctx context.Context, database, measurement, field string) (time.Time, bool, error) {
	escMeasurement := escapeIdentifier(measurement)
	escField := escapeIdentifier(field)

	direct := fmt.Sprintf("SELECT %s FROM %s ORDER BY time DESC LIMIT 1", escField, escMeasurement)
	if resp, err := c.executeQuery(ctx, direct, database, "ns"); err == nil {
		if ts, ok, _ := firstTimestamp(resp); ok {
			return ts, true, nil
		}
	}

	filtered := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY time DESC LIMIT 1", escField, escMeasurement, escField)
	if resp, err := c.executeQuery(ctx, filtered, database, "ns"); err == nil {
		if ts, ok, _ := firstTimestamp(resp); ok {
			return ts, true, nil
		}
	}

	count := fmt.Sprintf("SELECT COUNT(%s) FROM %s", escField, escMeasurement)
	if _, err := c.executeQuery(ctx, count, database, ""); err != nil {
		return time.Time{}, false, errors.Wrapf(err, "failed to probe last timestamp for field %s", field)
	}
	return time.Time{}, false, nil
}

// TimeRange returns measurement's first and last observed point times.
func (c *Client) TimeRange(ctx context.Context, database, measurement string) (first, last time.Time, err error) {
	escMeasurement := escapeIdentifier(measurement)

	firstResp, err := c.executeQuery(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY time ASC LIMIT 1", escMeasurement), database, "ns")
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(err, "failed to get time range from %s.%s", database, measurement)
	}
	first, _, _ = firstTimestamp(firstResp)

	lastResp, err := c.executeQuery(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY time DESC LIMIT 1", escMeasurement), database, "ns")
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(err, "failed to get time range from %s.%s", database, measurement)
	}
	last, _, _ = firstTimestamp(lastResp)

	return first, last, nil
}

// CountRecords counts measurement's points, optionally bounded by
// [start, end).
func (c *Client) CountRecords(ctx context.Context, database, measurement string, start, end *time.Time) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", escapeIdentifier(measurement))

	var conditions []string
	if start != nil {
		conditions = append(conditions, fmt.Sprintf("time >= %s", escapeQueryStringValue(start.UTC().Format(time.RFC3339Nano))))
	}
	if end != nil {
		conditions = append(conditions, fmt.Sprintf("time < %s", escapeQueryStringValue(end.UTC().Format(time.RFC3339Nano))))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	resp, err := c.executeQuery(ctx, query, database, "")
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count records in %s.%s", database, measurement)
	}

	for _, row := range firstSeriesValues(resp) {
		if len(row) < 2 {
			continue
		}
		return toInt64(row[1]), nil
	}
	return 0, nil
}

// Query runs a bounded SELECT and decodes the result rows.
func (c *Client) Query(ctx context.Context, params QueryParams) ([]Record, error) {
	selectClause := "*"
	if len(params.Fields) > 0 || len(params.Tags) > 0 {
		cols := make([]string, 0, len(params.Fields)+len(params.Tags))
		for _, f := range params.Fields {
			cols = append(cols, escapeIdentifier(f))
		}
		for _, t := range params.Tags {
			cols = append(cols, escapeIdentifier(t))
		}
		selectClause = strings.Join(cols, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE time >= %s AND time < %s",
		selectClause,
		escapeIdentifier(params.Measurement),
		escapeQueryStringValue(params.Start.UTC().Format(time.RFC3339Nano)),
		escapeQueryStringValue(params.End.UTC().Format(time.RFC3339Nano)),
	)
	if params.GroupBy != "" {
		query += " GROUP BY " + params.GroupBy
	}
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
	}

	resp, err := c.executeQuery(ctx, query, params.Database, "ns")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query data from %s.%s", params.Database, params.Measurement)
	}

	var records []Record
	if len(resp.Results) == 0 {
		return records, nil
	}
	for _, series := range resp.Results[0].Series {
		for _, row := range series.Values {
			rec := Record{Values: make(map[string]interface{}, len(series.Columns))}
			for i, col := range series.Columns {
				if i >= len(row) {
					continue
				}
				if col == "time" {
					if ns, ok := parseEpochNanos(row[i]); ok {
						rec.Time = time.Unix(0, ns).UTC()
					}
					continue
				}
				rec.Values[col] = row[i]
			}
			for k, v := range series.Tags {
				rec.Values[k] = v
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// Write sends rows to database/measurement, batching at writeBatchSize
// lines per HTTP request to bound request size.
func (c *Client) Write(ctx context.Context, database, measurement string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	for start := 0; start < len(rows); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		var lines []string
		for _, row := range rows[start:end] {
			line, err := EncodeLine(measurement, row)
			if err != nil {
				return errors.Wrapf(err, "failed to encode row for %s.%s", database, measurement)
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}

		if err := c.executeWrite(ctx, database, strings.Join(lines, "\n")); err != nil {
			return errors.Wrapf(err, "failed to write batch to %s.%s", database, measurement)
		}
	}
	return nil
}

func firstSeriesValues(resp *queryResponse) [][]interface{} {
	if resp == nil || len(resp.Results) == 0 || len(resp.Results[0].Series) == 0 {
		return nil
	}
	return resp.Results[0].Series[0].Values
}

func firstTimestamp(resp *queryResponse) (time.Time, bool, error) {
	values := firstSeriesValues(resp)
	if len(values) == 0 || len(values[0]) == 0 {
		return time.Time{}, false, nil
	}
	ns, ok := parseEpochNanos(values[0][0])
	if !ok {
		return time.Time{}, false, nil
	}
	return time.Unix(0, ns).UTC(), true, nil
}

// parseEpochNanos decodes a nanosecond epoch timestamp from a decoded JSON
// value. Query responses are decoded with json.Decoder.UseNumber, so this
// is normally a json.Number; float64 is accepted too since a nanosecond
// epoch (~1.7e18 for a 2025-era timestamp) already exceeds float64's 53-bit
// mantissa and would be rounded to the nearest ~512ns if ever decoded that
// way upstream.
func parseEpochNanos(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case json.Number:
		i, _ := n.Int64()
		return i
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

// Package publish sends pipeline reports to a socket.io server, so that an
// editor or dashboard can follow a project while it is being worked on.
package publish

import (
	"encoding/json"
	"fmt"

	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/renderpass"
)

// Report summarizes one evaluated pipeline.
type Report struct {
	Pipeline   string       `json:"pipeline"`
	DocumentID string       `json:"document_id"`
	GLVersion  int          `json:"gl_version"`
	Status     string       `json:"status"`
	Issues     []string     `json:"issues,omitempty"`
	Messages   []string     `json:"messages,omitempty"`
	Passes     []PassReport `json:"passes"`
	Plan       []string     `json:"plan,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// PassReport describes one render pass.
type PassReport struct {
	Sink     string   `json:"sink"`
	Index    int      `json:"index"`
	Seed     string   `json:"seed"`
	Boundary string   `json:"boundary,omitempty"`
	Blocks   []string `json:"blocks"`
	Upstream []int    `json:"upstream,omitempty"`
	Commands []string `json:"commands,omitempty"`
}

// NewReport builds the report of a pipeline from its validation and its
// partitions, one per sink, in evaluation order.
func NewReport(p *graph.Pipeline, validation graph.Report, results []*renderpass.Result) *Report {
	r := &Report{
		Pipeline:   p.Name(),
		DocumentID: p.DocumentID().String(),
		GLVersion:  p.GLVersion(),
		Status:     validation.Status.String(),
		Passes:     []PassReport{},
	}
	for _, issue := range validation.Issues {
		r.Issues = append(r.Issues, issue.String())
	}
	for _, res := range results {
		for _, pass := range res.Order() {
			r.Passes = append(r.Passes, newPassReport(res.Sink(), pass))
		}
	}
	return r
}

func newPassReport(sink *graph.Block, pass *renderpass.Pass) PassReport {
	pr := PassReport{
		Sink:  sink.Name(),
		Index: pass.Index(),
		Seed:  pass.Seed().Name(),
	}
	if b := pass.Boundary(); b != nil {
		pr.Boundary = b.Name()
	}
	for _, b := range pass.Blocks() {
		pr.Blocks = append(pr.Blocks, b.Name())
	}
	for _, up := range pass.Upstream() {
		pr.Upstream = append(pr.Upstream, up.Index())
	}
	for _, cmd := range pass.RenderCommands() {
		pr.Commands = append(pr.Commands, fmt.Sprintf("%s %s", cmd.Type(), cmd.Name()))
	}
	return pr
}

// Payload returns the report as the generic map emitted on the wire.
func (r *Report) Payload() (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return out, nil
}

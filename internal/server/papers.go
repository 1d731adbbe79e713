package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/app"
)

var (
	markdownCT = []string{"text/markdown; charset=utf-8"}
	ipynbCT    = []string{"application/x-ipynb+json"}
)

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := papertrail.SearchQuery{
		Query: r.URL.Query().Get("q"),
		Year:  r.URL.Query().Get("year"),
	}
	var err error
	if q.Limit, err = intQuery(r, "limit", 0); err != nil {
		writeErr(w, r, err)
		return
	}
	if q.Offset, err = intQuery(r, "offset", 0); err != nil {
		writeErr(w, r, err)
		return
	}

	res, err := s.deps.App.Papers.Search(r.Context(), q)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handlePaper(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.App.Papers.Paper(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleCitations(w http.ResponseWriter, r *http.Request) {
	s.handleLinks(w, r, s.deps.App.Papers.Citations)
}

func (s *server) handleReferences(w http.ResponseWriter, r *http.Request) {
	s.handleLinks(w, r, s.deps.App.Papers.References)
}

type linksResponse struct {
	PaperID string             `json:"paper_id"`
	Papers  []papertrail.Paper `json:"papers"`
}

func (s *server) handleLinks(w http.ResponseWriter, r *http.Request,
	lookup func(ctx context.Context, id string, limit int) ([]papertrail.Paper, error),
) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	id := pathParam(r, "id")
	papers, err := lookup(r.Context(), id, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if papers == nil {
		papers = []papertrail.Paper{}
	}
	writeJSON(w, http.StatusOK, linksResponse{PaperID: id, Papers: papers})
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	depth, err := intQuery(r, "depth", 1)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	perNode, err := intQuery(r, "per_node", 0)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	g, err := s.deps.App.Papers.Graph(r.Context(), pathParam(r, "id"), depth, perNode)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	rep, err := s.deps.App.Reports.Build(r.Context(), pathParam(r, "id"), app.ReportOptions{
		Limit: limit,
		Lang:  r.URL.Query().Get("lang"),
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header()["Content-Type"] = markdownCT
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rep.RenderMarkdown()))
}

func (s *server) handleNotebook(w http.ResponseWriter, r *http.Request) {
	nb, err := s.deps.App.Notebooks.Generate(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	data, err := nb.MarshalIPYNB()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header()["Content-Type"] = ipynbCT
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type invalidateResponse struct {
	PaperID string `json:"paper_id"`
	Removed int    `json:"removed"`
}

func (s *server) handleInvalidatePaper(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	n, err := s.deps.App.Papers.Invalidate(id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invalidateResponse{PaperID: id, Removed: n})
}

type translateRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

func (s *server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeErr(w, r, fmt.Errorf("%w: invalid request body: %v", papertrail.ErrBadRequest, err))
		return
	}
	tr, err := s.deps.App.Translations.Translate(r.Context(), req.Text, req.Lang)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

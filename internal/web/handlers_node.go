package web

import "net/http"

// apiNodeGet returns a snapshot of the host the runtime drives.
func (s *Server) apiNodeGet(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Node.NodeInfo(r.Context())
	if err != nil {
		s.deps.Log.Error("failed to read node info", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read node info")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

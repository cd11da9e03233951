package httpapi

import (
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/crm-console/internal/access"
	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

type userResponse struct {
	User   domain.User    `json:"user"`
	Roles  domain.RoleSet `json:"roles"`
	Notice *domain.Notice `json:"notice,omitempty"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	user, cookies, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrUpstreamRejected) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Notice: domain.ErrorNotice("Email ou mot de passe incorrect.")})
			return
		}
		writeError(w, h.logger, err, "La connexion a échoué.")
		return
	}

	relayCookies(w, cookies)
	notice := domain.SuccessNotice("Connexion réussie", "Bienvenue dans votre CRM !")
	writeJSON(w, http.StatusOK, userResponse{User: user, Roles: user.Roles, Notice: &notice})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := domain.Session{Cookie: r.Header.Get("Cookie")}
	cookies, err := h.auth.Logout(r.Context(), sess)
	if err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
		writeError(w, h.logger, err, "La déconnexion a échoué.")
		return
	}
	relayCookies(w, cookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}
	if errs := reg.Validate(); len(errs) > 0 {
		writeError(w, h.logger, errors.Join(errs...), "")
		return
	}
	if err := h.auth.Register(r.Context(), reg); err != nil {
		writeError(w, h.logger, err, "La création du compte a échoué.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]domain.Notice{
		"notice": domain.SuccessNotice("Compte créé", "Votre compte a été créé avec succès !"),
	})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	writeJSON(w, http.StatusOK, userResponse{User: sess.User, Roles: sess.User.Roles})
}

func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var upd domain.UserUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	if errs := upd.Validate(); len(errs) > 0 {
		writeError(w, h.logger, errors.Join(errs...), "")
		return
	}

	user, err := h.auth.UpdateMe(r.Context(), session(r), upd)
	if err != nil {
		writeError(w, h.logger, err, "La modification a échoué.")
		return
	}
	notice := domain.SuccessNotice("Profil mis à jour", "Vos informations ont été sauvegardées avec succès.")
	writeJSON(w, http.StatusOK, userResponse{User: user, Roles: user.Roles, Notice: &notice})
}

func (h *handler) navigation(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  sess.User,
		"items": access.Navigation(sess),
	})
}

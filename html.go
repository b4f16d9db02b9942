/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/lieability/games/questions"
)

type HealthStatus struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Games       int    `json:"games"`
	Connections int    `json:"connections"`
}

type PackList struct {
	Packs   []string `json:"packs"`
	Default string   `json:"default"`
}

func cspHome(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
}

func serveHomePage(cfg *Config, path string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		cspHome(cfg, w)

		body := `<a href="` + cfg.prefix + path + `">Start a new game of Lie-Ability</a>`

		_, err := io.WriteString(w, newPage("Lie-Ability", body))
		if err != nil {
			errs <- err

			return
		}

		log.Debug().Str("ip", realIP(r)).Msg("Served home page")
	}
}

func serveHealthCheck(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		games, connections := gm.stats()

		writeJSON(cfg, w, http.StatusOK, HealthStatus{
			Status:      "ok",
			Version:     releaseVersion,
			Games:       games,
			Connections: connections,
		})
	}
}

func servePacks(cfg *Config, lib *questions.Library, def string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, PackList{
			Packs:   lib.Names(),
			Default: def,
		})
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /lieability/

User-agent: CCBot
Disallow: /

User-agent: GPTBot
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}

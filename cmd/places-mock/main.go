package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
)

type placeEntry struct {
	Name             string           `json:"name"`
	FormattedAddress *string          `json:"formattedAddress"`
	Rating           *float64         `json:"rating"`
	UserRatingsTotal *int             `json:"userRatingsTotal"`
	Location         *json.RawMessage `json:"location"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "mock-places.json", "path to mock data file")
		apiKey  = flag.String("api-key", "", "required X-API-Key value; empty accepts any")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var payload map[string]placeEntry
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/places", func(w http.ResponseWriter, r *http.Request) {
		if *apiKey != "" && r.Header.Get("X-API-Key") != *apiKey {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		name := r.URL.Query().Get("name")
		if *verbose {
			log.Printf("lookup %q", name)
		}
		entry, ok := payload[name]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if entry.Name == "" {
			entry.Name = name
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	addr := ":" + *port
	log.Printf("mock places listening on %s (%d entries)", addr, len(payload))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

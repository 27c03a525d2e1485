// Command crescentd serves deployed model endpoints over HTTP, backed by an
// object store of model archives.
package main

import (
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"crescent/serve"
	"crescent/storage"
)

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	storeURL := flag.String("store", "dir:crescent-data", "object store URL (dir:PATH or sqlite:PATH)")
	addr := flag.String("addr", "", "listen address; defaults to :$PORT, then :8080")
	flag.Parse()

	listen := *addr
	if listen == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		listen = ":" + port
	}

	store, err := storage.Open(*storeURL)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	host := serve.NewHost(store)

	log.Printf("Server starting on %s", listen)
	log.Printf("Store: %s", *storeURL)
	log.Println("Endpoints:")
	log.Println("  GET    /ping - Health check")
	log.Println("  GET    /endpoints - List deployed endpoints")
	log.Println("  POST   /endpoints - Deploy a model archive")
	log.Println("  GET    /endpoints/NAME - Describe one endpoint")
	log.Println("  POST   /endpoints/NAME/invocations - Score a batch")
	log.Println("  DELETE /endpoints/NAME - Tear an endpoint down")

	if err := http.ListenAndServe(listen, logRequests(host.Handler())); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

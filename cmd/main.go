package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Ruisth/Library/configs"
	"github.com/Ruisth/Library/internal/daemon"
	"github.com/Ruisth/Library/internal/db"
	"github.com/Ruisth/Library/internal/handlers"
	"github.com/Ruisth/Library/internal/middleware"
	"github.com/Ruisth/Library/internal/sequence"
	"github.com/Ruisth/Library/internal/utils"
)

func main() {
	cfg := configs.LoadConfig()
	db.Connect(cfg.MongoURI)

	r := mux.NewRouter()
	r.Use(middleware.JSONMiddleware)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	})

	bookColl := db.GetCollection(cfg.DBName, "books")
	userColl := db.GetCollection(cfg.DBName, "users")
	commentColl := db.GetCollection(cfg.DBName, "comments")
	livrariaColl := db.GetCollection(cfg.DBName, "livrarias")
	counterColl := db.GetCollection(cfg.DBName, "counters")
	auditColl := db.GetCollection(cfg.DBName, "audit_logs")

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureGeoIndex(startupCtx, livrariaColl); err != nil {
		log.Fatalf("Failed to create geo index: %v", err)
	}
	startupCancel()

	allocator := &sequence.Allocator{Counters: counterColl}
	auditLogger := utils.Logger{Collection: auditColl}

	exporterCtx, exporterCancel := context.WithCancel(context.Background())
	defer exporterCancel()
	exporter := daemon.LogExporter{Coll: auditColl, Interval: 30 * time.Second}
	exporter.Start(exporterCtx)

	bookHandler := handlers.NewBookHandler(bookColl, userColl, commentColl, allocator, auditLogger, cfg.DefaultPageSize, cfg.MaxPageSize)

	r.HandleFunc("/books", bookHandler.ListBooks).Methods("GET")
	r.HandleFunc("/books", bookHandler.AddBooks).Methods("POST")
	r.HandleFunc("/books/star", bookHandler.FiveStarBooks).Methods("GET")
	r.HandleFunc("/books/comments", bookHandler.BooksWithComments).Methods("GET")
	r.HandleFunc("/books/job", bookHandler.ReviewsByJob).Methods("GET")
	r.HandleFunc("/books/filter", bookHandler.FilterBooks).Methods("GET")
	r.HandleFunc("/books/top/{limit}", bookHandler.TopBooks).Methods("GET")
	r.HandleFunc("/books/ratings/{order}", bookHandler.BooksByRatings).Methods("GET")
	r.HandleFunc("/books/averageScore/{id}", bookHandler.BookAverageScore).Methods("GET")
	r.HandleFunc("/books/year/{year}", bookHandler.BooksByYear).Methods("GET")
	r.HandleFunc("/books/id/{id}", bookHandler.GetBook).Methods("GET")
	// Deprecated alias from an earlier revision; /books/year/{year} is canonical.
	r.HandleFunc("/books/{year:[0-9]+}", bookHandler.BooksByYear).Methods("GET")
	r.HandleFunc("/books/{id}", bookHandler.UpdateBook).Methods("PUT")
	r.HandleFunc("/books/{id}", bookHandler.DeleteBook).Methods("DELETE")

	userHandler := handlers.NewUserHandler(userColl, bookColl, allocator, auditLogger, cfg.DefaultPageSize, cfg.MaxPageSize)

	r.HandleFunc("/users", userHandler.ListUsers).Methods("GET")
	r.HandleFunc("/users", userHandler.AddUsers).Methods("POST")
	r.HandleFunc("/users/check", userHandler.LastUser).Methods("GET")
	r.HandleFunc("/users/{id}", userHandler.GetUser).Methods("GET")
	r.HandleFunc("/users/{id}", userHandler.UpdateUser).Methods("PUT")
	r.HandleFunc("/users/{id}", userHandler.DeleteUser).Methods("DELETE")

	commentHandler := &handlers.CommentHandler{
		CommentCollection: commentColl,
		UserCollection:    userColl,
		BookCollection:    bookColl,
		Allocator:         allocator,
		AuditLogger:       auditLogger,
	}

	r.HandleFunc("/comments", commentHandler.AddComment).Methods("POST")
	r.HandleFunc("/comments/{id}", commentHandler.DeleteComment).Methods("DELETE")

	livrariaHandler := handlers.NewLivrariaHandler(livrariaColl, bookColl, auditLogger, cfg.DefaultPageSize, cfg.MaxPageSize, cfg.NearbyMaxDistanceMeters)

	r.HandleFunc("/livrarias", livrariaHandler.ListLivrarias).Methods("GET")
	r.HandleFunc("/livrarias", livrariaHandler.AddLivraria).Methods("POST")
	r.HandleFunc("/livrarias/route", livrariaHandler.LivrariasAlongRoute).Methods("POST")
	r.HandleFunc("/livrarias/near/{long}/{lat}", livrariaHandler.NearbyLivrarias).Methods("GET")
	r.HandleFunc("/livrarias/count_nearby/{long}/{lat}", livrariaHandler.CountNearby).Methods("GET")
	r.HandleFunc("/livrarias/user_fair/{long}/{lat}", livrariaHandler.UserInsideFair).Methods("GET")
	r.HandleFunc("/livrarias/{id}/books", livrariaHandler.AddBooks).Methods("POST")
	r.HandleFunc("/livrarias/{id}", livrariaHandler.GetLivraria).Methods("GET")
	r.HandleFunc("/livrarias/{id}", livrariaHandler.DeleteLivraria).Methods("DELETE")

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)

	var server = http.Server{
		Addr:    ":" + cfg.Port,
		Handler: cors(gorillahandlers.LoggingHandler(os.Stdout, r)),
	}

	go func() {
		log.Println("Server starting on port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Graceful shutdown failed: %v", err)
	}
	if err := db.Disconnect(ctx); err != nil {
		log.Printf("Mongo disconnect failed: %v", err)
	}
	log.Println("Server shut down.")
}

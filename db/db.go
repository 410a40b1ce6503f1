package db

import (
	"context"
	"log"
	"time"

	"vitrine/globals"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection       *mongo.Collection
	ProductsCollection   *mongo.Collection
	CategoriesCollection *mongo.Collection
	PurchasesCollection  *mongo.Collection
	FeedbackCollection   *mongo.Collection
	CommentsCollection   *mongo.Collection
	Client               *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := globals.EnvOr("MONGO_URI", "mongodb://localhost:27017")
	dbName := globals.EnvOr("MONGO_DB", "shopdb")

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	Client, err = mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database(dbName)
	UserCollection = database.Collection("users")
	ProductsCollection = database.Collection("products")
	CategoriesCollection = database.Collection("categories")
	PurchasesCollection = database.Collection("purchases")
	FeedbackCollection = database.Collection("feedback")
	CommentsCollection = database.Collection("comments")
}

// EnsureIndexes creates the indexes the handlers rely on: unique account
// identity, unique product name/slug, the open-cart lookup, and the
// one-feedback-per-user rule.
func EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)

	_, err := UserCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	})
	if err != nil {
		return err
	}

	_, err = ProductsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return err
	}

	// open-cart lookup: at most one open purchase per buyer
	_, err = PurchasesCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "buyer", Value: 1}, {Key: "status", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = FeedbackCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "product", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

package products

import (
	"net/http"

	"vitrine/db"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

type categoryStats struct {
	Category string  `json:"category" bson:"_id"`
	Count    int64   `json:"count" bson:"count"`
	AvgPrice float64 `json:"avg_price" bson:"avg_price"`
	MinPrice float64 `json:"min_price" bson:"min_price"`
	MaxPrice float64 `json:"max_price" bson:"max_price"`
}

// GetStats handles GET /api/products/stats: catalogue size and price spread
// per category, computed with an aggregation pipeline.
func GetStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":       "$category",
			"count":     bson.M{"$sum": 1},
			"avg_price": bson.M{"$avg": "$price"},
			"min_price": bson.M{"$min": "$price"},
			"max_price": bson.M{"$max": "$price"},
		}},
		{"$sort": bson.M{"count": -1}},
	}

	cursor, err := db.ProductsCollection.Aggregate(r.Context(), pipeline)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	defer cursor.Close(r.Context())

	stats := []categoryStats{}
	if err := cursor.All(r.Context(), &stats); err != nil {
		utils.SendError(w, err)
		return
	}
	for i := range stats {
		stats[i].AvgPrice = utils.Round2(stats[i].AvgPrice)
		if stats[i].Category == "" {
			stats[i].Category = "uncategorized"
		}
	}

	total, err := db.ProductsCollection.CountDocuments(r.Context(), bson.M{})
	if err != nil {
		utils.SendError(w, err)
		return
	}

	utils.SendData(w, http.StatusOK, stats, utils.M{"total_products": total})
}

type productStats struct {
	ProductID     string  `json:"productid"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	UnitsSold     int64   `json:"units_sold"`
	AvgRating     float64 `json:"avg_rating"`
	TotalFeedback int64   `json:"total_feedback"`
	TotalComments int64   `json:"total_comments"`
}

// GetProductStats handles GET /api/products/:id/stats: units sold across all
// purchases of one product plus its rating and engagement counters.
func GetProductStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	product, err := findProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	stats := productStats{
		ProductID: product.ProductID,
		Name:      product.Name,
		Price:     product.Price,
	}

	salesPipeline := []bson.M{
		{"$unwind": "$products"},
		{"$match": bson.M{"products.product": product.ProductID}},
		{"$group": bson.M{
			"_id":        nil,
			"units_sold": bson.M{"$sum": "$products.quantity"},
		}},
	}
	cursor, err := db.PurchasesCollection.Aggregate(r.Context(), salesPipeline)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	var sales []struct {
		UnitsSold int64 `bson:"units_sold"`
	}
	if err := cursor.All(r.Context(), &sales); err != nil {
		utils.SendError(w, err)
		return
	}
	if len(sales) > 0 {
		stats.UnitsSold = sales[0].UnitsSold
	}

	ratingPipeline := []bson.M{
		{"$match": bson.M{"product": product.ProductID}},
		{"$group": bson.M{
			"_id":            nil,
			"avg_rating":     bson.M{"$avg": "$rating"},
			"total_feedback": bson.M{"$sum": 1},
		}},
	}
	cursor, err = db.FeedbackCollection.Aggregate(r.Context(), ratingPipeline)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	var ratings []struct {
		AvgRating     float64 `bson:"avg_rating"`
		TotalFeedback int64   `bson:"total_feedback"`
	}
	if err := cursor.All(r.Context(), &ratings); err != nil {
		utils.SendError(w, err)
		return
	}
	if len(ratings) > 0 {
		stats.AvgRating = utils.Round2(ratings[0].AvgRating)
		stats.TotalFeedback = ratings[0].TotalFeedback
	}

	stats.TotalComments, err = db.CommentsCollection.CountDocuments(r.Context(), bson.M{"product": product.ProductID})
	if err != nil {
		utils.SendError(w, err)
		return
	}

	utils.SendData(w, http.StatusOK, stats, nil)
}

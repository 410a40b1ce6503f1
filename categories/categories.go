package categories

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/models"
	"vitrine/mq"
	"vitrine/query"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetCategories handles GET /api/categories. Without filters it returns main
// categories only; pass parent[eq]=<id> to list a subtree.
func GetCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := query.Parse(r.URL.Query(), nil)
	if _, ok := q.Filter["parent"]; !ok {
		q.Filter["parent"] = bson.M{"$in": []interface{}{nil, ""}}
	}
	page, err := query.Run[models.Category](r.Context(), db.CategoriesCollection, q)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, page.Items, utils.M{
		"total":        page.Total,
		"current_page": page.CurrentPage,
		"last_page":    page.LastPage,
	})
}

func CreateCategory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	createWithParent(w, r, "")
}

// CreateSubcategory handles POST /api/categories/:id/subcategories.
func CreateSubcategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	parent, err := findCategory(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if !parent.IsParent() {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "subcategories cannot be nested"))
		return
	}
	createWithParent(w, r, parent.CategoryID)
}

func createWithParent(w http.ResponseWriter, r *http.Request, parent string) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}

	name := strings.ToLower(strings.TrimSpace(input.Name))
	if len(name) < 2 {
		utils.SendError(w, apperr.NewValidation().Add("name", "name must have at least 2 characters"))
		return
	}

	count, err := db.CategoriesCollection.CountDocuments(r.Context(), bson.M{"name": name})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if count > 0 {
		utils.SendError(w, apperr.New(http.StatusConflict, "a category with this name already exists"))
		return
	}

	now := time.Now()
	category := models.Category{
		CategoryID: "c" + utils.GenerateRandomString(10),
		Name:       name,
		Parent:     parent,
		CreatedBy:  utils.GetUserIDFromRequest(r),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.CategoriesCollection.InsertOne(r.Context(), category); err != nil {
		utils.SendError(w, err)
		return
	}

	mq.Emit(r.Context(), "category-created", models.CatalogEvent{
		EntityType: "category", EntityID: category.CategoryID, Method: "POST",
		UserID: category.CreatedBy,
	})

	utils.SendData(w, http.StatusCreated, category, nil)
}

// GetCategory handles GET /api/categories/:id; subcategories ride along in
// the metadata.
func GetCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	category, err := findCategory(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	subs := []models.Category{}
	cursor, err := db.CategoriesCollection.Find(r.Context(), bson.M{"parent": category.CategoryID})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	defer cursor.Close(r.Context())
	if err := cursor.All(r.Context(), &subs); err != nil {
		utils.SendError(w, err)
		return
	}

	utils.SendData(w, http.StatusOK, category, utils.M{"subcategories": subs})
}

func EditCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid request body"))
		return
	}

	name := strings.ToLower(strings.TrimSpace(input.Name))
	if len(name) < 2 {
		utils.SendError(w, apperr.NewValidation().Add("name", "name must have at least 2 characters"))
		return
	}

	category, err := findCategory(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	count, err := db.CategoriesCollection.CountDocuments(r.Context(), bson.M{
		"name":       name,
		"categoryid": bson.M{"$ne": category.CategoryID},
	})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if count > 0 {
		utils.SendError(w, apperr.New(http.StatusConflict, "a category with this name already exists"))
		return
	}

	_, err = db.CategoriesCollection.UpdateOne(
		r.Context(),
		bson.M{"categoryid": category.CategoryID},
		bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now()}},
	)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	category.Name = name
	utils.SendData(w, http.StatusOK, category, nil)
}

// DeleteCategory refuses to orphan anything: subcategories and products must
// go first.
func DeleteCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	category, err := findCategory(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	subCount, err := db.CategoriesCollection.CountDocuments(r.Context(), bson.M{"parent": category.CategoryID})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if subCount > 0 {
		utils.SendError(w, apperr.New(http.StatusConflict, "category still has subcategories"))
		return
	}

	field := "category"
	if !category.IsParent() {
		field = "subcategory"
	}
	prodCount, err := db.ProductsCollection.CountDocuments(r.Context(), bson.M{field: category.CategoryID})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if prodCount > 0 {
		utils.SendError(w, apperr.New(http.StatusConflict, "category still has products"))
		return
	}

	if _, err := db.CategoriesCollection.DeleteOne(r.Context(), bson.M{"categoryid": category.CategoryID}); err != nil {
		utils.SendError(w, err)
		return
	}

	mq.Emit(r.Context(), "category-deleted", models.CatalogEvent{
		EntityType: "category", EntityID: category.CategoryID, Method: "DELETE",
		UserID: utils.GetUserIDFromRequest(r),
	})

	utils.SendData(w, http.StatusOK, utils.M{"deleted": category.CategoryID}, nil)
}

func findCategory(r *http.Request, id string) (models.Category, error) {
	var category models.Category
	err := db.CategoriesCollection.FindOne(r.Context(), bson.M{"categoryid": id}).Decode(&category)
	if err == mongo.ErrNoDocuments {
		return category, apperr.New(http.StatusNotFound, "category not found")
	}
	return category, err
}

package products

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"vitrine/apperr"
	"vitrine/db"
	"vitrine/filemgr"
	"vitrine/models"
	"vitrine/mq"
	"vitrine/query"
	"vitrine/rdx"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const maxUploadSize = 32 << 20

// GetProducts handles GET /api/products with the full filter/sort/paginate
// and search surface.
func GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := query.Parse(r.URL.Query(), nil)
	page, err := query.Run[models.Product](r.Context(), db.ProductsCollection, q)
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

// GetProduct handles GET /api/products/:id, where :id is a product id or a
// slug. Hits go through the redis cache; the mq worker invalidates entries
// when a product mutates. Slugs resolve through a slug-to-id alias key so
// both lookup forms share one cached document.
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("id")

	if product, ok := cachedProduct(rdx.RdxGet, key); ok {
		utils.SendData(w, http.StatusOK, product, nil)
		return
	}

	product, err := findProduct(r, key)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if raw, err := json.Marshal(product); err == nil {
		if err := rdx.RdxSetTTL("product:"+product.ProductID, string(raw), 10*time.Minute); err != nil {
			log.Printf("cache product %s: %v", product.ProductID, err)
		}
		if product.Slug != "" {
			if err := rdx.RdxSetTTL("product:slug:"+product.Slug, product.ProductID, 10*time.Minute); err != nil {
				log.Printf("cache product slug %s: %v", product.Slug, err)
			}
		}
	}

	utils.SendData(w, http.StatusOK, product, nil)
}

// cachedProduct looks key up in the cache, following the slug-to-id alias
// when key is a slug. The cached document always lives under the product id
// so invalidation needs to drop a single entry.
func cachedProduct(get func(string) (string, error), key string) (models.Product, bool) {
	id := key
	if alias, err := get("product:slug:" + key); err == nil && alias != "" {
		id = alias
	}
	raw, err := get("product:" + id)
	if err != nil || raw == "" {
		return models.Product{}, false
	}
	var product models.Product
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		return models.Product{}, false
	}
	return product, true
}

func findProduct(r *http.Request, key string) (models.Product, error) {
	var product models.Product
	err := db.ProductsCollection.FindOne(r.Context(), bson.M{
		"$or": []bson.M{{"productid": key}, {"slug": key}},
	}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return product, apperr.New(http.StatusNotFound, "product not found")
	}
	return product, err
}

// CreateProduct handles POST /api/products (multipart form, product-manager
// gated in routes). Image files are stored with generated thumbnails.
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid multipart form"))
		return
	}

	name := r.FormValue("name")
	description := r.FormValue("description")
	priceStr := r.FormValue("price")

	verr := apperr.NewValidation()
	if len(name) < 2 {
		verr.Add("name", "name must have at least 2 characters")
	}
	if len(description) < 10 {
		verr.Add("description", "description must have at least 10 characters")
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price <= 0 {
		verr.Add("price", "price must be a number greater than zero")
	}
	if !verr.Empty() {
		utils.SendError(w, verr)
		return
	}

	count, err := db.ProductsCollection.CountDocuments(r.Context(), bson.M{"name": name})
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if count > 0 {
		utils.SendError(w, apperr.New(http.StatusConflict, "a product with this name already exists"))
		return
	}

	category := r.FormValue("category")
	subcategory := r.FormValue("subcategory")
	if category != "" {
		if err := categoryExists(r, category); err != nil {
			utils.SendError(w, err)
			return
		}
	}

	images, err := saveUploadedImages(r)
	if err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, err.Error()))
		return
	}

	now := time.Now()
	product := models.Product{
		ProductID:   "p" + utils.GenerateRandomString(10),
		Name:        name,
		Description: description,
		Price:       utils.Round2(price),
		Slug:        utils.Slugify(name),
		Category:    category,
		Subcategory: subcategory,
		Images:      images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := db.ProductsCollection.InsertOne(r.Context(), product); err != nil {
		utils.SendError(w, err)
		return
	}

	mq.Emit(r.Context(), "product-created", models.CatalogEvent{
		EntityType: "product", EntityID: product.ProductID, Method: "POST",
		UserID: utils.GetUserIDFromRequest(r),
	})

	utils.SendData(w, http.StatusCreated, product, nil)
}

// EditProduct handles PUT /api/products/:id (multipart form; only supplied
// fields change, uploaded files append to the image list).
func EditProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "invalid multipart form"))
		return
	}

	product, err := findProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	verr := apperr.NewValidation()

	if name := r.FormValue("name"); name != "" {
		if len(name) < 2 {
			verr.Add("name", "name must have at least 2 characters")
		} else {
			set["name"] = name
			set["slug"] = utils.Slugify(name)
		}
	}
	if description := r.FormValue("description"); description != "" {
		if len(description) < 10 {
			verr.Add("description", "description must have at least 10 characters")
		} else {
			set["description"] = description
		}
	}
	if priceStr := r.FormValue("price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price <= 0 {
			verr.Add("price", "price must be a number greater than zero")
		} else {
			set["price"] = utils.Round2(price)
		}
	}
	if category := r.FormValue("category"); category != "" {
		if err := categoryExists(r, category); err != nil {
			utils.SendError(w, err)
			return
		}
		set["category"] = category
	}
	if subcategory := r.FormValue("subcategory"); subcategory != "" {
		set["subcategory"] = subcategory
	}
	if !verr.Empty() {
		utils.SendError(w, verr)
		return
	}

	update := bson.M{"$set": set}
	images, err := saveUploadedImages(r)
	if err != nil {
		utils.SendError(w, apperr.New(http.StatusBadRequest, err.Error()))
		return
	}
	if len(images) > 0 {
		update["$push"] = bson.M{"images": bson.M{"$each": images}}
	}

	if _, err := db.ProductsCollection.UpdateOne(r.Context(), bson.M{"productid": product.ProductID}, update); err != nil {
		utils.SendError(w, err)
		return
	}

	mq.Emit(r.Context(), "product-updated", models.CatalogEvent{
		EntityType: "product", EntityID: product.ProductID, Method: "PUT",
		UserID: utils.GetUserIDFromRequest(r),
	})

	updated, err := findProduct(r, product.ProductID)
	if err != nil {
		utils.SendError(w, err)
		return
	}
	utils.SendData(w, http.StatusOK, updated, nil)
}

// DeleteProduct handles DELETE /api/products/:id. Feedback, comments, stored
// images and wishlist references go with it.
func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	product, err := findProduct(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}

	if _, err := db.ProductsCollection.DeleteOne(r.Context(), bson.M{"productid": product.ProductID}); err != nil {
		utils.SendError(w, err)
		return
	}

	if _, err := db.FeedbackCollection.DeleteMany(r.Context(), bson.M{"product": product.ProductID}); err != nil {
		log.Printf("cascade feedback for %s: %v", product.ProductID, err)
	}
	if _, err := db.CommentsCollection.DeleteMany(r.Context(), bson.M{"product": product.ProductID}); err != nil {
		log.Printf("cascade comments for %s: %v", product.ProductID, err)
	}
	if _, err := db.UserCollection.UpdateMany(r.Context(),
		bson.M{"wishlist": product.ProductID},
		bson.M{"$pull": bson.M{"wishlist": product.ProductID}},
	); err != nil {
		log.Printf("cascade wishlists for %s: %v", product.ProductID, err)
	}
	for _, img := range product.Images {
		filemgr.RemoveProductImage(img)
	}
	rdx.RdxDel("product:" + product.ProductID)

	mq.Emit(r.Context(), "product-deleted", models.CatalogEvent{
		EntityType: "product", EntityID: product.ProductID, Method: "DELETE",
		UserID: utils.GetUserIDFromRequest(r),
	})

	utils.SendData(w, http.StatusOK, utils.M{"deleted": product.ProductID}, nil)
}

func categoryExists(r *http.Request, categoryID string) error {
	count, err := db.CategoriesCollection.CountDocuments(r.Context(), bson.M{"categoryid": categoryID})
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.New(http.StatusBadRequest, "category does not exist")
	}
	return nil
}

func saveUploadedImages(r *http.Request) ([]string, error) {
	images := []string{}
	if r.MultipartForm == nil {
		return images, nil
	}
	for _, header := range r.MultipartForm.File["images"] {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		name, err := filemgr.SaveProductImage(file, header)
		if err != nil {
			return nil, err
		}
		images = append(images, name)
	}
	return images, nil
}

package routes

import (
	"net/http"

	"vitrine/auth"
	"vitrine/categories"
	"vitrine/comments"
	"vitrine/feedback"
	"vitrine/globals"
	"vitrine/live"
	"vitrine/middleware"
	"vitrine/products"
	"vitrine/purchases"
	"vitrine/ratelim"
	"vitrine/users"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/productpic/*filepath", http.Dir("static/productpic"))
}

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/register", ratelim.RateLimit(auth.Register))
	router.POST("/api/auth/login", ratelim.RateLimit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.Logout))
	router.POST("/api/auth/token/refresh", ratelim.RateLimit(auth.RefreshToken))
	router.POST("/api/auth/forgot-password", ratelim.RateLimit(auth.ForgotPassword))
	router.POST("/api/auth/reset-password/:token", ratelim.RateLimit(auth.ResetPassword))

	router.GET("/api/auth/me", middleware.Authenticate(auth.Me))
	router.PUT("/api/auth/me", middleware.Authenticate(auth.EditMe))
	router.DELETE("/api/auth/me", middleware.Authenticate(auth.DeleteMe))
}

func AddUserRoutes(router *httprouter.Router) {
	admin := func(h httprouter.Handle) httprouter.Handle {
		return middleware.Authenticate(middleware.RequireRole(h, globals.RoleAdmin))
	}
	router.GET("/api/users", admin(users.GetUsers))
	router.POST("/api/users", admin(users.CreateUser))
	router.GET("/api/users/:id", admin(users.GetUser))
	router.PUT("/api/users/:id", admin(users.EditUser))
	router.DELETE("/api/users/:id", admin(users.DeleteUser))
}

func AddProductRoutes(router *httprouter.Router) {
	manager := func(h httprouter.Handle) httprouter.Handle {
		return middleware.Authenticate(middleware.RequireRole(h, globals.RoleAdmin, globals.RoleCS))
	}

	router.GET("/api/products", products.GetProducts)
	// "stats" shares the :id segment; httprouter cannot register both.
	router.GET("/api/products/:id", showProductOrStats)
	router.GET("/api/products/:id/stats", products.GetProductStats)
	router.POST("/api/products", manager(products.CreateProduct))
	router.PUT("/api/products/:id", manager(products.EditProduct))
	router.DELETE("/api/products/:id", manager(products.DeleteProduct))

	router.PUT("/api/products/:id/wishlist", middleware.Authenticate(products.ToggleWishlist))

	router.POST("/api/products/:id/cart", ratelim.RateLimit(middleware.Authenticate(purchases.AddToCart)))
	router.PUT("/api/products/:id/cart", ratelim.RateLimit(middleware.Authenticate(purchases.EditCart)))
	router.DELETE("/api/products/:id/cart", ratelim.RateLimit(middleware.Authenticate(purchases.RemoveFromCart)))
}

func showProductOrStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") == "stats" {
		products.GetStats(w, r, ps)
		return
	}
	products.GetProduct(w, r, ps)
}

func AddFeedbackRoutes(router *httprouter.Router) {
	router.GET("/api/products/:id/feedback", feedback.GetFeedback)
	router.POST("/api/products/:id/feedback", middleware.Authenticate(feedback.InsertFeedback))
	router.GET("/api/products/:id/feedback/:fid", feedback.ShowFeedback)
	router.PUT("/api/products/:id/feedback/:fid", middleware.Authenticate(feedback.EditFeedback))
	router.DELETE("/api/products/:id/feedback/:fid", middleware.Authenticate(feedback.DeleteFeedback))
}

func AddCommentsRoutes(router *httprouter.Router) {
	router.GET("/api/products/:id/comments", comments.GetComments)
	router.POST("/api/products/:id/comments", middleware.Authenticate(comments.InsertComment))
	router.GET("/api/products/:id/comments/:cid", comments.ShowComment)
	router.PUT("/api/products/:id/comments/:cid", middleware.Authenticate(comments.EditComment))
	router.DELETE("/api/products/:id/comments/:cid", middleware.Authenticate(comments.DeleteComment))
}

func AddCategoryRoutes(router *httprouter.Router) {
	manager := func(h httprouter.Handle) httprouter.Handle {
		return middleware.Authenticate(middleware.RequireRole(h, globals.RoleAdmin, globals.RoleCS))
	}

	router.GET("/api/categories", categories.GetCategories)
	router.POST("/api/categories", manager(categories.CreateCategory))
	router.GET("/api/categories/:id", categories.GetCategory)
	router.PUT("/api/categories/:id", manager(categories.EditCategory))
	router.DELETE("/api/categories/:id", manager(categories.DeleteCategory))
	router.POST("/api/categories/:id/subcategories", manager(categories.CreateSubcategory))
}

func AddPurchaseRoutes(router *httprouter.Router, hub *live.Hub) {
	purchases.UseHub(hub)

	router.GET("/api/purchases", middleware.Authenticate(purchases.GetPurchases))
	router.GET("/api/purchases/:id", middleware.Authenticate(purchases.GetPurchase))
	router.DELETE("/api/purchases/:id", middleware.Authenticate(purchases.DeletePurchase))
	router.GET("/api/purchases/:id/payment", middleware.Authenticate(purchases.GetTotal))
	router.POST("/api/purchases/:id/payment", ratelim.RateLimit(middleware.Authenticate(purchases.Pay)))
	router.GET("/api/purchases/:id/receipt", middleware.Authenticate(purchases.PrintReceipt))

	router.GET("/ws/updates", live.ServeUpdates(hub))
}

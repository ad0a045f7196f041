// Package docs registers the API description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a user account", "responses": {"201": {"description": "token and user"}, "400": {"description": "invalid input"}, "409": {"description": "email taken"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Sign in", "responses": {"200": {"description": "token and user"}, "401": {"description": "invalid credentials"}}}},
        "/auth/me": {"get": {"tags": ["auth"], "summary": "Current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "user"}}}},
        "/products": {
            "get": {"tags": ["products"], "summary": "List products", "parameters": [{"name": "category", "in": "query", "type": "string"}, {"name": "search", "in": "query", "type": "string"}, {"name": "limit", "in": "query", "type": "integer"}], "responses": {"200": {"description": "products"}}},
            "post": {"tags": ["products"], "summary": "Create a product", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "product"}, "403": {"description": "admin only"}}}
        },
        "/products/{id}": {
            "get": {"tags": ["products"], "summary": "Get a product", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "product"}, "404": {"description": "not found"}}},
            "put": {"tags": ["products"], "summary": "Update a product", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "product"}}},
            "delete": {"tags": ["products"], "summary": "Delete a product", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "removed"}}}
        },
        "/products/{id}/image": {"post": {"tags": ["products"], "summary": "Upload a product image", "consumes": ["multipart/form-data"], "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "image", "in": "formData", "required": true, "type": "file"}], "responses": {"200": {"description": "product"}, "503": {"description": "image storage unavailable"}}}},
        "/cart": {
            "get": {"tags": ["cart"], "summary": "Session cart", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "cart"}}},
            "delete": {"tags": ["cart"], "summary": "Clear the cart", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "empty cart"}}}
        },
        "/cart/items": {"post": {"tags": ["cart"], "summary": "Add a product to the cart", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "cart"}, "409": {"description": "insufficient stock"}}}},
        "/cart/items/{productId}": {
            "put": {"tags": ["cart"], "summary": "Set a line quantity", "security": [{"BearerAuth": []}], "parameters": [{"name": "productId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "cart"}, "409": {"description": "insufficient stock"}}},
            "delete": {"tags": ["cart"], "summary": "Remove a line", "security": [{"BearerAuth": []}], "parameters": [{"name": "productId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "cart"}}}
        },
        "/cart/checkout": {"post": {"tags": ["cart"], "summary": "Place an order for the cart", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "order"}, "422": {"description": "cart is empty"}}}},
        "/orders": {
            "post": {"tags": ["orders"], "summary": "Place an order", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "order"}, "409": {"description": "insufficient stock"}, "422": {"description": "cart is empty"}}},
            "get": {"tags": ["orders"], "summary": "List all orders", "security": [{"BearerAuth": []}], "parameters": [{"name": "status", "in": "query", "type": "string"}, {"name": "search", "in": "query", "type": "string"}], "responses": {"200": {"description": "orders"}}}
        },
        "/orders/my": {"get": {"tags": ["orders"], "summary": "Orders of the current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "orders"}}}},
        "/orders/{id}": {"get": {"tags": ["orders"], "summary": "Get an order", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "order"}, "403": {"description": "not the owner"}}}},
        "/orders/{id}/status": {"put": {"tags": ["orders"], "summary": "Change an order status", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "order"}, "403": {"description": "admin only"}, "409": {"description": "transition not allowed"}}}},
        "/users": {"get": {"tags": ["users"], "summary": "List users", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "users"}}}},
        "/users/profile": {"put": {"tags": ["users"], "summary": "Update own profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "user"}}}},
        "/admin/stats": {"get": {"tags": ["admin"], "summary": "Dashboard statistics", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "stats"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Farm Market API",
	Description:      "Farm produce marketplace: catalog, carts and orders.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

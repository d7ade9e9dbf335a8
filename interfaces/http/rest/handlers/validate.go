package handlers

import "github.com/go-playground/validator/v10"

// validate is the shared request validator
var validate = validator.New()

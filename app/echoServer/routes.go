package echoServer

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"libcirc/app/echoServer/controller/auth"
	"libcirc/app/echoServer/controller/book"
	"libcirc/app/echoServer/controller/loan"
	"libcirc/app/echoServer/controller/person"
	"libcirc/app/echoServer/controller/report"
	"libcirc/app/echoServer/controller/reservation"
)

type C struct {
	Auth        *auth.Controller
	Book        *book.Controller
	Person      *person.Controller
	Reservation *reservation.Controller
	Loan        *loan.Controller
	Report      *report.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/auth/login", c.Auth.Login)

	// Everything else is circulation-desk work behind the staff token.
	staff := e.Group("/v1")
	staff.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(echo.Context) jwt.Claims { return jwt.MapClaims{} },
	}))

	// Catalog
	staff.GET("/books", c.Book.List)
	staff.GET("/books/:id", c.Book.Detail)
	staff.GET("/books/:id/availability", c.Book.Availability)
	staff.POST("/books", c.Book.Create)
	staff.POST("/books/:id/copies", c.Book.AddCopies)

	// Members
	staff.POST("/persons", c.Person.Register)
	staff.GET("/persons", c.Person.List)
	staff.GET("/persons/:id/loans", c.Person.LoanHistory)

	// Reservations
	staff.POST("/reservations", c.Reservation.Create)
	staff.GET("/reservations", c.Reservation.List)
	staff.POST("/reservations/:id/approve", c.Reservation.Approve)
	staff.POST("/reservations/:id/reject", c.Reservation.Reject)

	// Loans
	staff.GET("/loans/overdue", c.Loan.Overdue)
	staff.POST("/loans/:id/return", c.Loan.Return)
	staff.GET("/loans/orphans", c.Loan.Orphans)

	// Reports
	staff.GET("/admin/metrics", c.Report.Metrics)
}

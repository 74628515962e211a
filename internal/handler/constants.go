// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"
	// RouteSuffixEdit is the suffix for edit routes.
	RouteSuffixEdit = "/edit"
	// RouteSuffixCover is the suffix for the cover upload route.
	RouteSuffixCover = "/cover"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteRegister is the registration route.
	RouteRegister = "/register"

	// RouteBooks is the public catalog route.
	RouteBooks = "/books"
	// RouteAuthors is the authors management route.
	RouteAuthors = "/authors"
	// RouteCategories is the categories management route.
	RouteCategories = "/categories"
	// RouteLoans is the reader loans route.
	RouteLoans = "/loans"
	// RouteReservations is the reader reservations route.
	RouteReservations = "/reservations"

	// RouteBooksID is the book detail route pattern.
	RouteBooksID = RouteBooks + RouteParamID
	// RouteAuthorsID is the author route pattern.
	RouteAuthorsID = RouteAuthors + RouteParamID
	// RouteCategoriesID is the category route pattern.
	RouteCategoriesID = RouteCategories + RouteParamID
	// RouteLoansID is the loan route pattern.
	RouteLoansID = RouteLoans + RouteParamID
)

const (
	redirectManage           = "/manage"
	redirectManageBooks      = redirectManage + RouteBooks
	redirectManageBooksNew   = redirectManageBooks + RouteSuffixNew
	redirectManageAuthors    = redirectManage + RouteAuthors
	redirectManageAuthorsNew = redirectManageAuthors + RouteSuffixNew
	redirectManageCategories = redirectManage + RouteCategories
	redirectManageLoans      = redirectManage + RouteLoans
	redirectLogin            = RouteLogin
	redirectBooks            = RouteBooks
	redirectMyLoans          = RouteLoans
	redirectMyReservations   = RouteReservations

	redirectManageBooksID = redirectManageBooks + "/%d"
	redirectBooksID       = RouteBooks + "/%d"
)

// HeaderContentType is the Content-Type HTTP header name.
const HeaderContentType = "Content-Type"

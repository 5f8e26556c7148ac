//go:build cgo

package symbols

import (
	"context"
	"testing"

	"sentinel/internal/model"
)

func TestGrammarExtract_Go(t *testing.T) {
	source := []byte(`package store

import "fmt"

type Handler struct {
	db *Database
}

func NewHandler(db *Database) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Get(id string) (*Item, error) {
	fmt.Println(id)
	return h.db.Find(id)
}

func helper() {
}
`)

	g := newGrammarAdapter()
	res, err := g.extract(context.Background(), "store.go", source, model.LangGo)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if s := findSymbol(res.symbols, "Handler", model.KindStruct); s == nil {
		t.Error("did not find Handler struct")
	} else if s.QualifiedName != "store.Handler" {
		t.Errorf("Handler qualified name = %q", s.QualifiedName)
	}

	get := findSymbol(res.symbols, "Get", model.KindMethod)
	if get == nil {
		t.Fatal("did not find Get method")
	}
	if get.ParentScope != "store.Handler" {
		t.Errorf("Get parent = %q, want store.Handler", get.ParentScope)
	}
	if !get.IsExported {
		t.Error("Get should be exported")
	}

	helper := findSymbol(res.symbols, "helper", model.KindFunction)
	if helper == nil {
		t.Fatal("did not find helper")
	}
	if helper.IsExported {
		t.Error("helper should not be exported")
	}

	if !hasRelationship(res.relationships, "store.Handler.Get", "Println", model.RelCalls) {
		t.Error("missing call Get -> Println")
	}
	if len(res.imports) != 1 || res.imports[0] != "fmt" {
		t.Errorf("imports = %v, want [fmt]", res.imports)
	}
}

func TestGrammarExtract_TypeScript(t *testing.T) {
	source := []byte(`import { Db } from './db';

export interface Repository {
  find(id: string): Item;
}

export class UserRepository extends BaseRepository implements Repository {
  private cache: Map<string, Item>;

  constructor(db: Db) {
    super(db);
  }

  async find(id: string): Promise<Item> {
    return this.load(id);
  }
}

export const handler = async (req: Request) => {
  return process(req);
};
`)

	g := newGrammarAdapter()
	res, err := g.extract(context.Background(), "repo.ts", source, model.LangTypeScript)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if findSymbol(res.symbols, "Repository", model.KindInterface) == nil {
		t.Error("did not find Repository interface")
	}
	repo := findSymbol(res.symbols, "UserRepository", model.KindClass)
	if repo == nil {
		t.Fatal("did not find UserRepository")
	}
	if !repo.IsExported {
		t.Error("UserRepository should be exported")
	}
	if findSymbol(res.symbols, "constructor", model.KindConstructor) == nil {
		t.Error("did not find constructor")
	}
	find := findSymbol(res.symbols, "find", model.KindMethod)
	if find == nil {
		t.Fatal("did not find find method")
	}
	if !find.IsAsync {
		t.Error("find should be async")
	}
	if findSymbol(res.symbols, "handler", model.KindFunction) == nil {
		t.Error("did not find arrow function handler")
	}
	if !hasRelationship(res.relationships, "UserRepository", "BaseRepository", model.RelInherits) {
		t.Error("missing inherits edge")
	}
	if !hasRelationship(res.relationships, "UserRepository", "Repository", model.RelImplements) {
		t.Error("missing implements edge")
	}
}

func TestGrammarExtract_Python(t *testing.T) {
	source := []byte(`import os
from typing import List

class UserService(BaseService):
    def __init__(self, repo):
        self.repo = repo

    @staticmethod
    def validate(name):
        return len(name) > 0

    def get_user(self, user_id):
        return self.repo.find(user_id)

def _private_helper():
    pass
`)

	g := newGrammarAdapter()
	res, err := g.extract(context.Background(), "service.py", source, model.LangPython)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if findSymbol(res.symbols, "UserService", model.KindClass) == nil {
		t.Error("did not find UserService")
	}
	if findSymbol(res.symbols, "__init__", model.KindConstructor) == nil {
		t.Error("did not find __init__ constructor")
	}
	validate := findSymbol(res.symbols, "validate", model.KindMethod)
	if validate == nil {
		t.Fatal("did not find validate")
	}
	if !validate.HasTag("decorated:staticmethod") {
		t.Errorf("validate tags = %v", validate.SemanticTags)
	}
	helper := findSymbol(res.symbols, "_private_helper", model.KindFunction)
	if helper == nil || helper.IsExported {
		t.Error("_private_helper should be a non-exported function")
	}
	if !hasRelationship(res.relationships, "UserService", "BaseService", model.RelInherits) {
		t.Error("missing inherits edge")
	}
	if !hasRelationship(res.relationships, "UserService.get_user", "find", model.RelCalls) {
		t.Error("missing call get_user -> find")
	}
}

func TestGrammarExtract_Rust(t *testing.T) {
	source := []byte(`use std::collections::HashMap;

pub trait Shape {
    fn area(&self) -> f64;
}

pub struct Circle {
    radius: f64,
}

impl Shape for Circle {
    fn area(&self) -> f64 {
        compute(self.radius)
    }
}

impl Circle {
    pub fn new(radius: f64) -> Self {
        Circle { radius }
    }
}
`)

	g := newGrammarAdapter()
	res, err := g.extract(context.Background(), "shape.rs", source, model.LangRust)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if findSymbol(res.symbols, "Shape", model.KindInterface) == nil {
		t.Error("did not find Shape trait")
	}
	circle := findSymbol(res.symbols, "Circle", model.KindStruct)
	if circle == nil || !circle.IsExported {
		t.Error("Circle should be an exported struct")
	}
	if findSymbol(res.symbols, "new", model.KindConstructor) == nil {
		t.Error("did not find constructor new")
	}
	if !hasRelationship(res.relationships, "Circle", "Shape", model.RelImplements) {
		t.Error("missing implements edge Circle -> Shape")
	}
}

func TestGrammarExtract_Java(t *testing.T) {
	source := []byte(`package com.example;

import java.util.List;

public class OrderController extends BaseController implements Controller {
    private final OrderRepository repository;

    public OrderController(OrderRepository repository) {
        this.repository = repository;
    }

    @GetMapping
    public List<Order> list() {
        return repository.findAll();
    }
}
`)

	g := newGrammarAdapter()
	res, err := g.extract(context.Background(), "OrderController.java", source, model.LangJava)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	ctrl := findSymbol(res.symbols, "OrderController", model.KindClass)
	if ctrl == nil {
		t.Fatal("did not find OrderController")
	}
	if ctrl.Namespace != "com.example" {
		t.Errorf("namespace = %q, want com.example", ctrl.Namespace)
	}
	if findSymbol(res.symbols, "OrderController", model.KindConstructor) == nil {
		t.Error("did not find constructor")
	}
	list := findSymbol(res.symbols, "list", model.KindMethod)
	if list == nil {
		t.Fatal("did not find list")
	}
	if list.Visibility != "public" {
		t.Errorf("list visibility = %q", list.Visibility)
	}
	if !list.HasTag("decorated:GetMapping") {
		t.Errorf("list tags = %v", list.SemanticTags)
	}
	if findSymbol(res.symbols, "repository", model.KindField) == nil {
		t.Error("did not find repository field")
	}
	if !hasRelationship(res.relationships, "com.example.OrderController", "Controller", model.RelImplements) {
		t.Error("missing implements edge")
	}
}

func TestGrammarExtract_Cpp(t *testing.T) {
	source := []byte(`#include <vector>

namespace engine {

class Renderer : public Base {
public:
    virtual void draw() = 0;
    int count;
private:
    int secret;
};

bool Renderer::validate(int x) {
    return check(x);
}

}
`)

	g := newGrammarAdapter()
	res, err := g.extract(context.Background(), "renderer.cpp", source, model.LangCpp)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if findSymbol(res.symbols, "engine", model.KindNamespace) == nil {
		t.Error("did not find engine namespace")
	}
	draw := findSymbol(res.symbols, "draw", model.KindMethod)
	if draw == nil {
		t.Fatal("did not find draw")
	}
	if !draw.HasTag("virtual") || !draw.HasTag("pure_virtual") {
		t.Errorf("draw tags = %v", draw.SemanticTags)
	}
	if draw.IsDefinition {
		t.Error("draw is a declaration only")
	}
	if s := findSymbol(res.symbols, "count", model.KindField); s == nil || s.Visibility != "public" {
		t.Error("count should be a public field")
	}
	if s := findSymbol(res.symbols, "secret", model.KindField); s == nil || s.Visibility != "private" {
		t.Error("secret should be a private field")
	}
	validate := findSymbol(res.symbols, "validate", model.KindMethod)
	if validate == nil {
		t.Fatal("did not find validate")
	}
	if validate.QualifiedName != "engine::Renderer::validate" {
		t.Errorf("validate qualified = %q", validate.QualifiedName)
	}
	if !hasRelationship(res.relationships, "engine::Renderer", "Base", model.RelInherits) {
		t.Error("missing inherits edge")
	}
}

func TestGrammarExtract_SyntaxError(t *testing.T) {
	g := newGrammarAdapter()
	_, err := g.extract(context.Background(), "broken.go", []byte("package x\nfunc (\n"), model.LangGo)
	if err == nil {
		t.Fatal("expected an error for a tree with syntax errors")
	}
}

func TestIsAvailable(t *testing.T) {
	if !IsAvailable() {
		t.Error("IsAvailable should be true in cgo builds")
	}
}

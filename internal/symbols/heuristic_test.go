package symbols

import (
	"testing"

	"sentinel/internal/model"
)

func findSymbol(symbols []model.Symbol, name string, kind model.SymbolKind) *model.Symbol {
	for i := range symbols {
		if symbols[i].Name == name && symbols[i].Kind == kind {
			return &symbols[i]
		}
	}
	return nil
}

func hasRelationship(rels []model.Relationship, from, to string, typ model.RelationshipType) bool {
	for _, r := range rels {
		if r.FromName == from && r.ToName == to && r.Type == typ {
			return true
		}
	}
	return false
}

func scanSource(t *testing.T, path, source string) *scanResult {
	t.Helper()
	lang, ok := model.LanguageFromPath(path)
	if !ok {
		t.Fatalf("no language for %s", path)
	}
	res, err := newHeuristicAnalyzer(lang, path).scan([]byte(source), 1, NewParseContext(), 0, 1<<20)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return res
}

func TestHeuristic_Go(t *testing.T) {
	res := scanSource(t, "store.go", `package store

import (
	"fmt"
)

type Handler struct {
	db   *Database
	Name string
}

func NewHandler(db *Database) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Get(id string) (*Item, error) {
	fmt.Println(id)
	return h.db.Find(id)
}
`)

	if res.moduleName != "store" {
		t.Errorf("moduleName = %q, want store", res.moduleName)
	}
	handler := findSymbol(res.symbols, "Handler", model.KindStruct)
	if handler == nil {
		t.Fatal("did not find Handler struct")
	}
	if handler.QualifiedName != "store.Handler" || !handler.IsExported {
		t.Errorf("Handler = %q exported=%v", handler.QualifiedName, handler.IsExported)
	}
	if db := findSymbol(res.symbols, "db", model.KindField); db == nil || db.ParentScope != "store.Handler" {
		t.Error("db should be a field of store.Handler")
	}
	get := findSymbol(res.symbols, "Get", model.KindMethod)
	if get == nil {
		t.Fatal("did not find Get method")
	}
	if get.QualifiedName != "store.Handler.Get" {
		t.Errorf("Get qualified = %q", get.QualifiedName)
	}
	if fn := findSymbol(res.symbols, "NewHandler", model.KindFunction); fn == nil || fn.ReturnType != "*Handler" {
		t.Error("NewHandler should be a function returning *Handler")
	}

	for _, want := range []struct {
		from, to string
		typ      model.RelationshipType
	}{
		{"store.Handler.Get", "Println", model.RelCalls},
		{"store.Handler.Get", "Find", model.RelCalls},
		{"store.Handler", "Database", model.RelUses},
	} {
		if !hasRelationship(res.relationships, want.from, want.to, want.typ) {
			t.Errorf("missing %s %s -> %s", want.typ, want.from, want.to)
		}
	}
	if len(res.imports) != 1 || res.imports[0] != "fmt" {
		t.Errorf("imports = %v, want [fmt]", res.imports)
	}
	if !res.ctx.IsUnresolved("Database") || !res.ctx.IsUnresolved("Item") {
		t.Errorf("unresolved = %v", res.ctx.Unresolved())
	}
}

func TestHeuristic_TypeScript(t *testing.T) {
	res := scanSource(t, "repo.ts", `import { Db } from './db';

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

	if len(res.imports) != 1 || res.imports[0] != "./db" {
		t.Errorf("imports = %v", res.imports)
	}
	if findSymbol(res.symbols, "Repository", model.KindInterface) == nil {
		t.Error("did not find Repository")
	}
	if findSymbol(res.symbols, "constructor", model.KindConstructor) == nil {
		t.Error("did not find constructor")
	}
	var find *model.Symbol
	for i := range res.symbols {
		if res.symbols[i].QualifiedName == "UserRepository.find" {
			find = &res.symbols[i]
		}
	}
	if find == nil {
		t.Fatal("did not find UserRepository.find")
	}
	if !find.IsAsync || find.ReturnType != "Promise<Item>" {
		t.Errorf("find async=%v return=%q", find.IsAsync, find.ReturnType)
	}
	if cache := findSymbol(res.symbols, "cache", model.KindField); cache == nil || cache.Visibility != "private" {
		t.Error("cache should be a private field")
	}
	handler := findSymbol(res.symbols, "handler", model.KindFunction)
	if handler == nil || !handler.IsExported || !handler.IsAsync {
		t.Error("handler should be an exported async function")
	}
	if !hasRelationship(res.relationships, "UserRepository", "BaseRepository", model.RelInherits) {
		t.Error("missing inherits edge")
	}
	if !hasRelationship(res.relationships, "UserRepository", "Repository", model.RelImplements) {
		t.Error("missing implements edge")
	}
	if !hasRelationship(res.relationships, "UserRepository.find", "load", model.RelCalls) {
		t.Error("missing call find -> load")
	}
	if !hasRelationship(res.relationships, "handler", "process", model.RelCalls) {
		t.Error("missing call handler -> process")
	}
}

func TestHeuristic_Python(t *testing.T) {
	res := scanSource(t, "service.py", `import os
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

	if len(res.imports) != 2 {
		t.Errorf("imports = %v, want os and typing", res.imports)
	}
	if findSymbol(res.symbols, "__init__", model.KindConstructor) == nil {
		t.Error("did not find __init__")
	}
	validate := findSymbol(res.symbols, "validate", model.KindMethod)
	if validate == nil {
		t.Fatal("did not find validate")
	}
	if !validate.HasTag("decorated:staticmethod") || !validate.HasTag("static") {
		t.Errorf("validate tags = %v", validate.SemanticTags)
	}
	if repo := findSymbol(res.symbols, "repo", model.KindField); repo == nil || repo.ParentScope != "UserService" {
		t.Error("repo should be a field of UserService")
	}
	helper := findSymbol(res.symbols, "_private_helper", model.KindFunction)
	if helper == nil {
		t.Fatal("did not find _private_helper")
	}
	if helper.IsExported || helper.QualifiedName != "_private_helper" {
		t.Errorf("_private_helper exported=%v qualified=%q", helper.IsExported, helper.QualifiedName)
	}
	if !hasRelationship(res.relationships, "UserService", "BaseService", model.RelInherits) {
		t.Error("missing inherits edge")
	}
	if !hasRelationship(res.relationships, "UserService.get_user", "find", model.RelCalls) {
		t.Error("missing call get_user -> find")
	}
	if !hasRelationship(res.relationships, "UserService.__init__", "UserService.repo", model.RelWritesField) {
		t.Error("missing writes_field __init__ -> repo")
	}
}

func TestHeuristic_Rust(t *testing.T) {
	res := scanSource(t, "shape.rs", `use std::collections::HashMap;

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

	if findSymbol(res.symbols, "Shape", model.KindInterface) == nil {
		t.Error("did not find Shape trait")
	}
	if c := findSymbol(res.symbols, "Circle", model.KindStruct); c == nil || !c.IsExported {
		t.Error("Circle should be an exported struct")
	}
	ctor := findSymbol(res.symbols, "new", model.KindConstructor)
	if ctor == nil {
		t.Fatal("did not find constructor new")
	}
	if ctor.QualifiedName != "Circle::new" || ctor.Visibility != "public" {
		t.Errorf("new = %q visibility %q", ctor.QualifiedName, ctor.Visibility)
	}
	if !hasRelationship(res.relationships, "Circle", "Shape", model.RelImplements) {
		t.Error("missing implements edge")
	}
	if !hasRelationship(res.relationships, "Circle::area", "compute", model.RelCalls) {
		t.Error("missing call area -> compute")
	}
	if len(res.imports) != 1 || res.imports[0] != "std::collections::HashMap" {
		t.Errorf("imports = %v", res.imports)
	}
}

func TestHeuristic_Java(t *testing.T) {
	res := scanSource(t, "OrderController.java", `package com.example;

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

    public void reset() {
        repository.clear();
    }
}
`)

	ctrl := findSymbol(res.symbols, "OrderController", model.KindClass)
	if ctrl == nil {
		t.Fatal("did not find OrderController")
	}
	if ctrl.QualifiedName != "com.example.OrderController" || ctrl.Visibility != "public" {
		t.Errorf("OrderController = %q visibility %q", ctrl.QualifiedName, ctrl.Visibility)
	}
	if findSymbol(res.symbols, "OrderController", model.KindConstructor) == nil {
		t.Error("did not find constructor")
	}
	list := findSymbol(res.symbols, "list", model.KindMethod)
	if list == nil {
		t.Fatal("did not find list")
	}
	if list.ReturnType != "List<Order>" || !list.HasTag("decorated:GetMapping") {
		t.Errorf("list return=%q tags=%v", list.ReturnType, list.SemanticTags)
	}
	if findSymbol(res.symbols, "reset", model.KindMethod) == nil {
		t.Error("did not find void method reset")
	}
	if f := findSymbol(res.symbols, "repository", model.KindField); f == nil || f.Visibility != "private" {
		t.Error("repository should be a private field")
	}
	if !hasRelationship(res.relationships, "com.example.OrderController", "BaseController", model.RelInherits) {
		t.Error("missing inherits edge")
	}
	if !hasRelationship(res.relationships, "com.example.OrderController", "Controller", model.RelImplements) {
		t.Error("missing implements edge")
	}
	if !hasRelationship(res.relationships, "com.example.OrderController.list", "findAll", model.RelCalls) {
		t.Error("missing call list -> findAll")
	}
}

func TestHeuristic_Kotlin(t *testing.T) {
	res := scanSource(t, "Greeter.kt", `package app

class Greeter(val name: String) : Base(), Speaker {
    fun greet(): String {
        return format(name)
    }
}
`)

	if findSymbol(res.symbols, "Greeter", model.KindClass) == nil {
		t.Fatal("did not find Greeter")
	}
	greet := findSymbol(res.symbols, "greet", model.KindMethod)
	if greet == nil || greet.QualifiedName != "app.Greeter.greet" {
		t.Error("greet should be a method of app.Greeter")
	}
	if !hasRelationship(res.relationships, "app.Greeter", "Base", model.RelInherits) {
		t.Error("missing inherits edge")
	}
	if !hasRelationship(res.relationships, "app.Greeter", "Speaker", model.RelImplements) {
		t.Error("missing implements edge")
	}
}

func TestHeuristic_Cpp(t *testing.T) {
	res := scanSource(t, "renderer.cpp", `#include <vector>
#include "mesh.h"

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

	if len(res.imports) != 2 || res.imports[1] != "mesh.h" {
		t.Errorf("imports = %v", res.imports)
	}
	if findSymbol(res.symbols, "engine", model.KindNamespace) == nil {
		t.Error("did not find engine namespace")
	}
	draw := findSymbol(res.symbols, "draw", model.KindMethod)
	if draw == nil {
		t.Fatal("did not find draw")
	}
	if draw.IsDefinition || !draw.HasTag("virtual") || !draw.HasTag("pure_virtual") {
		t.Errorf("draw definition=%v tags=%v", draw.IsDefinition, draw.SemanticTags)
	}
	if s := findSymbol(res.symbols, "count", model.KindField); s == nil || s.Visibility != "public" {
		t.Error("count should be public")
	}
	if s := findSymbol(res.symbols, "secret", model.KindField); s == nil || s.Visibility != "private" {
		t.Error("secret should be private")
	}
	validate := findSymbol(res.symbols, "validate", model.KindMethod)
	if validate == nil || validate.QualifiedName != "engine::Renderer::validate" {
		t.Fatal("validate should be engine::Renderer::validate")
	}
	if !hasRelationship(res.relationships, "engine::Renderer", "Base", model.RelInherits) {
		t.Error("missing inherits edge")
	}
	if !hasRelationship(res.relationships, "engine::Renderer::validate", "check", model.RelCalls) {
		t.Error("missing call validate -> check")
	}
}

func TestHeuristic_C(t *testing.T) {
	res := scanSource(t, "main.c", `#include "util.h"

static int helper(int a) {
    return a * 2;
}

int main(void) {
    return helper(3);
}
`)

	helper := findSymbol(res.symbols, "helper", model.KindFunction)
	if helper == nil || helper.IsExported {
		t.Error("helper should be a non-exported function")
	}
	if findSymbol(res.symbols, "main", model.KindFunction) == nil {
		t.Error("did not find main")
	}
	if !hasRelationship(res.relationships, "main", "helper", model.RelCalls) {
		t.Error("missing call main -> helper")
	}
	if !hasRelationship(res.relationships, "main.c", "util.h", model.RelIncludes) {
		t.Error("missing include edge")
	}
}

func TestHeuristic_Shell(t *testing.T) {
	res := scanSource(t, "deploy.sh", `#!/bin/bash
source "./lib.sh"

deploy() {
    build_app
}
`)

	if findSymbol(res.symbols, "deploy", model.KindFunction) == nil {
		t.Error("did not find deploy")
	}
	if len(res.imports) != 1 || res.imports[0] != "./lib.sh" {
		t.Errorf("imports = %v", res.imports)
	}
}

func TestHeuristic_MultiLineSignature(t *testing.T) {
	res := scanSource(t, "math.go", `package math

func Clamp(
	value int,
	lo int,
	hi int,
) int {
	return min(max(value, lo), hi)
}
`)

	clamp := findSymbol(res.symbols, "Clamp", model.KindFunction)
	if clamp == nil {
		t.Fatal("did not find Clamp")
	}
	if clamp.Line != 3 {
		t.Errorf("Clamp line = %d, want 3", clamp.Line)
	}
	if !hasRelationship(res.relationships, "math.Clamp", "min", model.RelCalls) {
		t.Error("missing call Clamp -> min")
	}
}

func TestHeuristic_CommentsAndStrings(t *testing.T) {
	res := scanSource(t, "app.js", `/* class Fake {
   function ghost() {}
*/
function real() {
  const s = "function notReal() {";
  // function alsoNotReal() {}
  return s;
}
`)

	if findSymbol(res.symbols, "real", model.KindFunction) == nil {
		t.Error("did not find real")
	}
	for _, name := range []string{"Fake", "ghost", "notReal", "alsoNotReal"} {
		for _, s := range res.symbols {
			if s.Name == name {
				t.Errorf("symbol %s found inside a comment or string", name)
			}
		}
	}
}
